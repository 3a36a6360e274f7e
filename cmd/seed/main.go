// Command seed loads users and products from a YAML fixture file. Running it
// twice leaves the database unchanged: existing users are skipped and product
// stock is set with a ledger adjustment.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/inventory/ledger"
	inventoryrepo "callcenter_backend/internal/inventory/repository"
	"callcenter_backend/internal/users/domain"
	usersrepo "callcenter_backend/internal/users/repository"
	userservice "callcenter_backend/internal/users/service"
	"callcenter_backend/migrations"
	"callcenter_backend/platform/config"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const seedActorName = "System (Seed)"

type fixtures struct {
	Users    []userFixture    `yaml:"users"`
	Products []productFixture `yaml:"products"`
}

type userFixture struct {
	Email    string   `yaml:"email"`
	FullName string   `yaml:"fullName"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

type productFixture struct {
	Name              string          `yaml:"name"`
	SKU               string          `yaml:"sku"`
	Price             decimal.Decimal `yaml:"price"`
	LowStockThreshold int             `yaml:"lowStockThreshold"`
	Stock             int             `yaml:"stock"`
}

func main() {
	path := flag.String("file", "cmd/seed/fixtures.yaml", "fixture file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)
	ctx := context.Background()

	f, err := os.Open(*path)
	if err != nil {
		panic("failed to open fixtures: " + err.Error())
	}
	defer f.Close()

	data, err := loadFixtures(f)
	if err != nil {
		panic("failed to parse fixtures: " + err.Error())
	}

	if _, err := db.RunMigrations(ctx, cfg, migrations.FS); err != nil {
		panic("failed to run database migrations: " + err.Error())
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	users := usersrepo.New(pool)
	for _, u := range data.Users {
		hash, err := userservice.HashPassword(u.Password)
		if err != nil {
			panic("failed to hash password: " + err.Error())
		}
		created, err := users.CreateUser(ctx, domain.User{
			Email:        strings.ToLower(u.Email),
			FullName:     u.FullName,
			PasswordHash: hash,
			Roles:        u.Roles,
		})
		if db.IsUniqueViolation(err, "") {
			log.Info("user exists, skipped", "email", u.Email)
			continue
		}
		if err != nil {
			panic(fmt.Sprintf("failed to create user %s: %v", u.Email, err))
		}
		log.Info("user created", "email", created.Email, "roles", created.Roles)
	}

	products := inventoryrepo.New(pool)
	actor := access.SystemActor(seedActorName)
	for _, p := range data.Products {
		sku := p.SKU
		product, err := products.CreateProduct(ctx, ledger.Product{
			Name:              p.Name,
			SKU:               &sku,
			Price:             p.Price,
			LowStockThreshold: p.LowStockThreshold,
		})
		if err != nil {
			panic(fmt.Sprintf("failed to upsert product %s: %v", p.SKU, err))
		}

		var res ledger.Result
		err = products.InTx(ctx, func(store ledger.Store) error {
			res, err = ledger.Adjust(ctx, store, ledger.AdjustRequest{
				ProductID:   product.ID,
				NewQuantity: p.Stock,
				Note:        "seed",
				Actor:       actor,
			})
			return err
		})
		if err != nil {
			panic(fmt.Sprintf("failed to set stock for %s: %v", p.SKU, err))
		}
		log.Info("product seeded", "sku", p.SKU, "stock", res.Product.Stock, "changed", res.Changed)
	}
}

func loadFixtures(r io.Reader) (fixtures, error) {
	var data fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return fixtures{}, err
	}

	for i, u := range data.Users {
		if strings.TrimSpace(u.Email) == "" || u.Password == "" {
			return fixtures{}, fmt.Errorf("users[%d]: email and password are required", i)
		}
		for _, role := range u.Roles {
			if _, ok := access.ParseRole(role); !ok {
				return fixtures{}, fmt.Errorf("users[%d]: unknown role %q", i, role)
			}
		}
	}
	for i, p := range data.Products {
		if strings.TrimSpace(p.SKU) == "" || strings.TrimSpace(p.Name) == "" {
			return fixtures{}, fmt.Errorf("products[%d]: name and sku are required", i)
		}
		if p.Stock < 0 || p.LowStockThreshold < 0 || p.Price.IsNegative() {
			return fixtures{}, fmt.Errorf("products[%d]: negative values are not allowed", i)
		}
	}
	return data, nil
}
