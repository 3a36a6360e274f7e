package main

import (
	"strings"
	"testing"
)

func TestLoadFixtures(t *testing.T) {
	data, err := loadFixtures(strings.NewReader(`
users:
  - email: admin@example.com
    fullName: Admin
    password: secret
    roles: [admin, agent]
products:
  - name: Blender
    sku: BL-1
    price: "10.50"
    lowStockThreshold: 2
    stock: 7
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(data.Users) != 1 || len(data.Users[0].Roles) != 2 {
		t.Fatalf("unexpected users %+v", data.Users)
	}
	if len(data.Products) != 1 || data.Products[0].Price.String() != "10.5" || data.Products[0].Stock != 7 {
		t.Fatalf("unexpected products %+v", data.Products)
	}
}

func TestLoadFixturesRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown role":   "users:\n  - {email: a@b.c, password: x, roles: [owner]}\n",
		"missing sku":    "products:\n  - {name: Blender, stock: 1}\n",
		"negative stock": "products:\n  - {name: Blender, sku: B, stock: -1}\n",
		"unknown field":  "products:\n  - {name: Blender, sku: B, colour: red}\n",
	}
	for name, input := range cases {
		if _, err := loadFixtures(strings.NewReader(input)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
