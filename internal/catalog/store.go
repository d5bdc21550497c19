package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DBTX is the subset of pgx (pool, conn or tx) the store needs.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listCategories = `SELECT code, catalog_code, COALESCE(parent_code, ''), COALESCE(parent_catalog_code, '')
FROM categories`

const listProductCategories = `SELECT product_code, category_code, catalog_code
FROM product_categories
WHERE product_code = ANY($1)`

// Store reads the category hierarchy from Postgres.
type Store struct {
	db DBTX
}

// NewStore wraps a pgx pool or connection.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// LoadTree loads every category and the direct category links of the given
// products.
func (s *Store) LoadTree(ctx context.Context, productCodes []string) (*Tree, error) {
	tree := NewTree()
	rows, err := s.db.Query(ctx, listCategories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	for rows.Next() {
		var code, catalogCode, parentCode, parentCatalog string
		if err := rows.Scan(&code, &catalogCode, &parentCode, &parentCatalog); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan category: %w", err)
		}
		parent := ""
		if parentCode != "" {
			if parentCatalog == "" {
				parentCatalog = catalogCode
			}
			parent = CompoundID(parentCode, parentCatalog)
		}
		tree.AddCategory(CompoundID(code, catalogCode), parent)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	if len(productCodes) == 0 {
		return tree, nil
	}
	rows, err = s.db.Query(ctx, listProductCategories, productCodes)
	if err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var product, code, catalogCode string
		if err := rows.Scan(&product, &code, &catalogCode); err != nil {
			return nil, fmt.Errorf("scan product category: %w", err)
		}
		tree.LinkProduct(product, CompoundID(code, catalogCode))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	return tree, nil
}
