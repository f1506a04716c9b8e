package main

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-core/internal/inventory"
	"github.com/ariefcatur/go-shop-core/internal/users"
)

var demoUsers = []users.User{
	{ID: "u-1001", Name: "Ayu Lestari", Email: "ayu@example.com", Role: "customer", Active: true},
	{ID: "u-1002", Name: "Budi Santoso", Email: "budi@example.com", Role: "customer", Active: false},
	{ID: "u-9000", Name: "Ops", Email: "ops@example.com", Role: "admin", Active: true},
}

var demoProducts = []inventory.NewProduct{
	{SKU: "KB-001", Name: "Mechanical Keyboard", Price: decimal.RequireFromString("49.99"), Stock: 25},
	{SKU: "MS-002", Name: "Wireless Mouse", Price: decimal.RequireFromString("19.90"), Stock: 8},
	{SKU: "MN-003", Name: "27in Monitor", Price: decimal.RequireFromString("229.00"), Stock: 60},
	{SKU: "CB-004", Name: "USB-C Cable", Price: decimal.RequireFromString("7.50"), Stock: 0},
}

// seedDemo is safe to run on every start: existing SKUs are left alone.
func seedDemo(ctx context.Context, ledger *inventory.Ledger, userStore users.Store) error {
	for _, u := range demoUsers {
		if err := userStore.Put(ctx, u); err != nil {
			return err
		}
	}
	for _, p := range demoProducts {
		existing, err := ledger.FindBySKU(ctx, p.SKU)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := ledger.AddProduct(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
