// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"
	"time"

	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// User domain - Base tables
		&user.User{},
		&user.Address{},

		// Product domain
		&product.Product{},

		// Cart domain
		&cart.CartItem{},

		// Coupon domain
		&coupon.Coupon{},
		&coupon.CouponUse{},

		// Order domain - Dependent tables
		&order.Order{},
		&order.OrderItem{},
		&order.TrackingEvent{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)",
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",

		// Address indexes
		"CREATE INDEX IF NOT EXISTS idx_addresses_user_default ON addresses(user_id, is_default)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_supplier_active ON products(supplier_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Cart indexes
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_user_product ON cart_items(user_id, product_id)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_created_at ON cart_items(created_at DESC)",

		// Coupon indexes
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_coupons_code ON coupons(code)",
		"CREATE INDEX IF NOT EXISTS idx_coupons_supplier ON coupons(supplier_id)",
		"CREATE INDEX IF NOT EXISTS idx_coupons_active_window ON coupons(is_active, valid_from, valid_until)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_coupon_uses_coupon_user ON coupon_uses(coupon_id, user_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_supplier_status ON orders(supplier_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_checkout ON orders(checkout_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_order_number ON orders(order_number)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Order items indexes
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_supplier ON order_items(supplier_id)",

		// Tracking event indexes
		"CREATE INDEX IF NOT EXISTS idx_tracking_events_item ON tracking_events(order_item_id, created_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := m.seedSuppliers(); err != nil {
		return fmt.Errorf("failed to seed suppliers: %w", err)
	}

	if err := m.seedTestBuyer(); err != nil {
		return fmt.Errorf("failed to seed test buyer: %w", err)
	}

	if err := m.seedTestProducts(); err != nil {
		return fmt.Errorf("failed to seed test products: %w", err)
	}

	if err := m.seedTestCoupons(); err != nil {
		return fmt.Errorf("failed to seed test coupons: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedAdminUser() error {
	log.Println("👤 Seeding admin user...")

	var existing user.User
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		now := time.Now()
		adminUser := user.User{
			Email:      "admin@example.com",
			Password:   string(hashedPassword),
			FirstName:  "Admin",
			LastName:   "User",
			Role:       user.RoleAdmin,
			IsActive:   true,
			IsApproved: true,
			ApprovedAt: &now,
		}

		if err := m.db.Create(&adminUser).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("✅ Created admin user: admin@example.com (password: admin123)")
	} else {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
	}

	return nil
}

// seedSuppliers creates approved supplier accounts for development
func (m *Migration) seedSuppliers() error {
	log.Println("🏭 Seeding suppliers...")

	suppliers := []struct {
		Email       string
		FirstName   string
		CompanyName string
		License     string
	}{
		{"supplier1@example.com", "Marina", "Distribuidora Aurora Ltda", "LIC-11111"},
		{"supplier2@example.com", "Carlos", "Atacado Horizonte SA", "LIC-22222"},
	}

	for _, s := range suppliers {
		var existing user.User
		result := m.db.Where("email = ?", s.Email).First(&existing)
		if result.Error == nil {
			log.Printf("⏭️ Supplier already exists: %s", s.Email)
			continue
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("supplier123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		now := time.Now()
		supplier := user.User{
			Email:         s.Email,
			Password:      string(hashedPassword),
			FirstName:     s.FirstName,
			LastName:      "Supplier",
			Role:          user.RoleSupplier,
			CompanyName:   s.CompanyName,
			LicenseNumber: s.License,
			IsActive:      true,
			IsApproved:    true,
			ApprovedAt:    &now,
		}

		if err := m.db.Create(&supplier).Error; err != nil {
			return fmt.Errorf("failed to create supplier %s: %w", s.Email, err)
		}
		log.Printf("✅ Created supplier: %s (%s)", s.Email, s.CompanyName)
	}

	return nil
}

func (m *Migration) seedTestBuyer() error {
	log.Println("👤 Seeding test buyer...")

	var existing user.User
	result := m.db.Where("email = ?", "buyer@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("buyer123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		now := time.Now()
		buyer := user.User{
			Email:      "buyer@example.com",
			Password:   string(hashedPassword),
			FirstName:  "Beatriz",
			LastName:   "Buyer",
			Phone:      "+5511987654321",
			Role:       user.RoleBuyer,
			IsActive:   true,
			IsApproved: true,
			ApprovedAt: &now,
		}

		if err := m.db.Create(&buyer).Error; err != nil {
			return err
		}

		// Default delivery address for the test buyer (Av. Paulista)
		address := user.Address{
			UserID:       buyer.ID,
			Label:        "Casa",
			Street:       "Avenida Paulista",
			Number:       "1578",
			Neighborhood: "Bela Vista",
			City:         "São Paulo",
			State:        "SP",
			PostalCode:   "01310200",
			IsDefault:    true,
		}
		if err := m.db.Create(&address).Error; err != nil {
			return err
		}

		log.Println("✅ Created test buyer: buyer@example.com (password: buyer123)")
	} else {
		log.Println("⏭️ Test buyer already exists")
	}

	return nil
}

// seedTestProducts creates catalog products split across the seeded suppliers
func (m *Migration) seedTestProducts() error {
	log.Println("🛍️ Seeding test products...")

	var productCount int64
	m.db.Model(&product.Product{}).Count(&productCount)
	if productCount >= 4 {
		log.Println("⏭️ Test products already exist")
		return nil
	}

	var supplier1, supplier2 user.User
	if err := m.db.Where("email = ?", "supplier1@example.com").First(&supplier1).Error; err != nil {
		return fmt.Errorf("supplier1 not found: %w", err)
	}
	if err := m.db.Where("email = ?", "supplier2@example.com").First(&supplier2).Error; err != nil {
		return fmt.Errorf("supplier2 not found: %w", err)
	}

	testProducts := []product.Product{
		{
			SKU:           "AUR-001",
			Name:          "Dipirona 500mg (20 comprimidos)",
			Description:   "Analgésico e antitérmico de uso adulto, caixa com 20 comprimidos.",
			Brand:         "Aurora",
			Price:         1290, // R$ 12,90
			SupplierID:    supplier1.ID,
			StockQuantity: 250,
			IsActive:      true,
		},
		{
			SKU:           "AUR-002",
			Name:          "Vitamina C 1g efervescente",
			Description:   "Suplemento de vitamina C, tubo com 10 comprimidos efervescentes.",
			Brand:         "Aurora",
			Price:         1990, // R$ 19,90
			SupplierID:    supplier1.ID,
			StockQuantity: 180,
			IsActive:      true,
		},
		{
			SKU:           "HOR-001",
			Name:          "Protetor Solar FPS 50 200ml",
			Description:   "Protetor solar corporal FPS 50, resistente à água, frasco de 200ml.",
			Brand:         "Horizonte",
			Price:         4590, // R$ 45,90
			SupplierID:    supplier2.ID,
			StockQuantity: 90,
			IsActive:      true,
		},
		{
			SKU:           "HOR-002",
			Name:          "Álcool em Gel 70% 500ml",
			Description:   "Álcool em gel antisséptico 70%, frasco com válvula pump de 500ml.",
			Brand:         "Horizonte",
			Price:         890, // R$ 8,90
			SupplierID:    supplier2.ID,
			StockQuantity: 400,
			IsActive:      true,
		},
	}

	for _, prod := range testProducts {
		var existing product.Product
		result := m.db.Where("sku = ?", prod.SKU).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&prod).Error; err != nil {
				log.Printf("⚠️ Failed to create test product %s: %v", prod.SKU, err)
			} else {
				log.Printf("✅ Created test product: %s", prod.Name)
			}
		} else {
			log.Printf("⏭️ Product already exists: %s", prod.Name)
		}
	}

	return nil
}

// seedTestCoupons creates a storewide and a supplier-scoped coupon
func (m *Migration) seedTestCoupons() error {
	log.Println("🎟️ Seeding test coupons...")

	var supplier1 user.User
	if err := m.db.Where("email = ?", "supplier1@example.com").First(&supplier1).Error; err != nil {
		return fmt.Errorf("supplier1 not found: %w", err)
	}

	windowStart := time.Now().AddDate(0, -1, 0)
	auroraEnd := time.Now().AddDate(0, 6, 0)
	testCoupons := []coupon.Coupon{
		{
			// No closing bound: the welcome code stays open-ended
			Code:         "BEMVINDO10",
			Description:  "10% off storewide for new buyers",
			Type:         coupon.TypePercentage,
			Value:        10,
			MinimumOrder: 5000, // R$ 50,00
			MaxUses:      1000,
			ValidFrom:    &windowStart,
			IsActive:     true,
		},
		{
			Code:         "AURORA15",
			Description:  "R$ 15,00 off Aurora products",
			Type:         coupon.TypeFixed,
			Value:        1500,
			MinimumOrder: 3000,
			MaxUses:      500,
			SupplierID:   &supplier1.ID,
			ValidFrom:    &windowStart,
			ValidUntil:   &auroraEnd,
			IsActive:     true,
		},
	}

	for _, c := range testCoupons {
		var existing coupon.Coupon
		result := m.db.Where("code = ?", c.Code).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&c).Error; err != nil {
				log.Printf("⚠️ Failed to create coupon %s: %v", c.Code, err)
			} else {
				log.Printf("✅ Created coupon: %s", c.Code)
			}
		} else {
			log.Printf("⏭️ Coupon already exists: %s", c.Code)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Define tables in reverse dependency order
	tables := []string{
		"tracking_events",
		"order_items",
		"orders",
		"coupon_uses",
		"coupons",
		"cart_items",
		"products",
		"addresses",
		"users",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	// Get list of tables
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}

// CleanupTestData removes test data (useful for production setup)
func (m *Migration) CleanupTestData() error {
	log.Println("🧹 Cleaning up test data...")

	result := m.db.Where("sku LIKE ? OR sku LIKE ?", "AUR-%", "HOR-%").Delete(&product.Product{})
	log.Printf("🗑️ Removed %d test products", result.RowsAffected)

	result = m.db.Where("code IN (?)", []string{"BEMVINDO10", "AURORA15"}).Delete(&coupon.Coupon{})
	log.Printf("🗑️ Removed %d test coupons", result.RowsAffected)

	result = m.db.Where("email IN (?) AND role <> ?",
		[]string{"buyer@example.com", "supplier1@example.com", "supplier2@example.com"},
		user.RoleAdmin).Delete(&user.User{})
	log.Printf("🗑️ Removed %d test users", result.RowsAffected)

	log.Println("✅ Test data cleanup completed")
	return nil
}
