package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-promo/internal/db"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := db.Migrate(dbURL); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	conn, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedCategories(conn)
	seedProductCategories(conn)
	seedRules(conn)
	seedCoupons(conn)

	log.Println("Seeding completed successfully!")
}

type category struct {
	Code          string
	Catalog       string
	ParentCode    string
	ParentCatalog string
}

func seedCategories(conn *sql.DB) {
	categories := []category{
		{"APPAREL", "MAIN", "", ""},
		{"SHOES", "MAIN", "APPAREL", "MAIN"},
		{"RUNNING", "MAIN", "SHOES", "MAIN"},
		{"SHIRTS", "MAIN", "APPAREL", "MAIN"},
		{"ELECTRONICS", "MAIN", "", ""},
		{"AUDIO", "MAIN", "ELECTRONICS", "MAIN"},
		{"SALE", "OUTLET", "", ""},
	}

	fmt.Println("Seeding Categories...")
	for _, c := range categories {
		_, err := conn.Exec(`
			INSERT INTO categories (code, catalog_code, parent_code, parent_catalog_code)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
			ON CONFLICT (code, catalog_code) DO UPDATE SET
				parent_code = EXCLUDED.parent_code,
				parent_catalog_code = EXCLUDED.parent_catalog_code;
		`, c.Code, c.Catalog, c.ParentCode, c.ParentCatalog)
		if err != nil {
			log.Printf("Failed to upsert category %s|%s: %v", c.Code, c.Catalog, err)
		}
	}
}

func seedProductCategories(conn *sql.DB) {
	links := []struct {
		Product  string
		Category string
		Catalog  string
	}{
		{"RUN-PEGASUS", "RUNNING", "MAIN"},
		{"RUN-ULTRABOOST", "RUNNING", "MAIN"},
		{"RUN-ULTRABOOST", "SALE", "OUTLET"},
		{"TEE-BASIC", "SHIRTS", "MAIN"},
		{"HP-WH1000", "AUDIO", "MAIN"},
	}

	fmt.Println("Seeding Product Categories...")
	for _, l := range links {
		_, err := conn.Exec(`
			INSERT INTO product_categories (product_code, category_code, catalog_code)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING;
		`, l.Product, l.Category, l.Catalog)
		if err != nil {
			log.Printf("Failed to link product %s: %v", l.Product, err)
		}
	}
}

type seedAction struct {
	Kind          string
	Value         string
	Target        string
	Exceptions    string
	Quantity      int
	NthItem       int
	CouponLimited bool
}

func seedRules(conn *sql.DB) {
	rules := []struct {
		Code       string
		Priority   int
		Conditions string
		Actions    []seedAction
	}{
		{
			Code:       "SHOES10",
			Priority:   10,
			Conditions: `[{"kind":"cart_contains_category","target":"SHOES|MAIN","quantity":1}]`,
			Actions:    []seedAction{{Kind: "category_percent", Value: "10", Target: "SHOES|MAIN"}},
		},
		{
			Code:       "TEE3RD",
			Priority:   20,
			Conditions: `[]`,
			Actions:    []seedAction{{Kind: "nth_product_percent", Value: "100", Target: "TEE-BASIC", NthItem: 3}},
		},
		{
			Code:       "SPRING",
			Priority:   30,
			Conditions: `[{"kind":"coupon_code_entered","target":"SPRING"}]`,
			Actions: []seedAction{
				{Kind: "subtotal_amount", Value: "5.00", Exceptions: "skuCodes:GIFTCARD"},
				{Kind: "sku_amount", Value: "2.50", Target: "HP-WH1000-BLK", Quantity: 1, CouponLimited: true},
			},
		},
		{
			Code:       "FREESHIP",
			Priority:   40,
			Conditions: `[{"kind":"subtotal_at_least","target":"75"}]`,
			Actions:    []seedAction{{Kind: "shipping_percent", Value: "100", Target: "0"}},
		},
	}

	fmt.Println("Seeding Promotion Rules...")
	for _, r := range rules {
		var ruleID int64
		err := conn.QueryRow(`
			INSERT INTO promotion_rules (code, enabled, priority, conditions)
			VALUES ($1, true, $2, $3::jsonb)
			ON CONFLICT (code) DO UPDATE SET
				priority = EXCLUDED.priority,
				conditions = EXCLUDED.conditions
			RETURNING id;
		`, r.Code, r.Priority, r.Conditions).Scan(&ruleID)
		if err != nil {
			log.Printf("Failed to seed rule %s: %v", r.Code, err)
			continue
		}

		if _, err := conn.Exec(`DELETE FROM promotion_actions WHERE rule_id = $1`, ruleID); err != nil {
			log.Printf("Failed to reset actions for %s: %v", r.Code, err)
			continue
		}
		for i, a := range r.Actions {
			_, err := conn.Exec(`
				INSERT INTO promotion_actions (rule_id, position, kind, value, exceptions, available_quantity, target, nth_item, coupon_limited)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
			`, ruleID, i, a.Kind, a.Value, a.Exceptions, a.Quantity, a.Target, a.NthItem, a.CouponLimited)
			if err != nil {
				log.Printf("Failed to seed action %d of %s: %v", i, r.Code, err)
			}
		}
	}
}

func seedCoupons(conn *sql.DB) {
	fmt.Println("Seeding Coupons...")
	var configID int64
	err := conn.QueryRow(`
		INSERT INTO coupon_configs (rule_code, usage_type, usage_limit, multi_use_per_order)
		VALUES ('SPRING', 'LIMIT_PER_SPECIFIED_USER', 2, false)
		ON CONFLICT (rule_code) DO UPDATE SET usage_limit = EXCLUDED.usage_limit
		RETURNING id;
	`).Scan(&configID)
	if err != nil {
		log.Printf("Failed to seed coupon config: %v", err)
		return
	}

	for _, code := range []string{"SPRING", "SPRING-VIP"} {
		_, err := conn.Exec(`
			INSERT INTO coupons (config_id, code)
			VALUES ($1, $2)
			ON CONFLICT (code) DO NOTHING;
		`, configID, code)
		if err != nil {
			log.Printf("Failed to seed coupon %s: %v", code, err)
		}
	}
}
