package migrate

import (
	"context"

	"jewelry-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto, uuid-ossp
	CreateChecks           bool // CHECK constraints for integrity
	CreateIndexes          bool // indexes and UNIQUE
	CreateUpdatedAtTrigger bool // updated_at trigger
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateUpdatedAtTrigger: true,
	}
}

func MigrateStoreDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("starting store database migration")

	if opt.CreateExtensions {
		if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("failed to enable pgcrypto extension", zap.Error(err))
			return err
		}
		if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
			log.Error("failed to enable uuid-ossp extension", zap.Error(err))
			return err
		}
	}

	log.Info("creating tables orders, order_details, order_items, payments")
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Order{},
		&models.OrderDetails{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		log.Error("failed to create tables", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		if err := db.WithContext(ctx).Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated
BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_payments_updated ON payments;
CREATE TRIGGER trg_payments_updated
BEFORE UPDATE ON payments
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("failed to create updated_at triggers", zap.Error(err))
			return err
		}
	}

	if opt.CreateChecks {
		log.Info("creating CHECK constraints")

		// statuses are stored as TEXT
		if err := db.WithContext(ctx).Exec(`
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('ORDER_STATUS_PENDING','ORDER_STATUS_PROCESSING','ORDER_STATUS_SHIPPED','ORDER_STATUS_DELIVERED','ORDER_STATUS_CANCELLED'));
`).Error; err != nil {
			log.Error("failed to create CHECK for order statuses", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_payment_status_allowed;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_payment_status_allowed
  CHECK (payment_status IN ('PAYMENT_STATUS_PENDING','PAYMENT_STATUS_PAID','PAYMENT_STATUS_FAILED','PAYMENT_STATUS_ON_DELIVERY'));
`).Error; err != nil {
			log.Error("failed to create CHECK for payment statuses", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_payment_method_allowed;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_payment_method_allowed
  CHECK (payment_method IN ('PAYMENT_METHOD_VIETQR','PAYMENT_METHOD_MOMO','PAYMENT_METHOD_COD'));
`).Error; err != nil {
			log.Error("failed to create CHECK for payment methods", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_quantity_gt_zero
  CHECK (quantity > 0);
`).Error; err != nil {
			log.Error("failed to create CHECK for order_items.quantity", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_prices_non_negative;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_prices_non_negative
  CHECK (unit_price >= 0 AND line_total >= 0);
`).Error; err != nil {
			log.Error("failed to create CHECK for order_items prices", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_total_non_negative;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_total_non_negative
  CHECK (total >= 0);
`).Error; err != nil {
			log.Error("failed to create CHECK for orders.total", zap.Error(err))
			return err
		}
	}

	if opt.CreateIndexes {
		log.Info("creating indexes")

		if err := db.WithContext(ctx).Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_order_items_order_product
ON order_items (order_id, product_id);
`).Error; err != nil {
			log.Error("failed to create unique index ux_order_items_order_product", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
CREATE INDEX IF NOT EXISTS ix_orders_customer_created
ON orders (customer_id, created_at DESC);
`).Error; err != nil {
			log.Error("failed to create index ix_orders_customer_created", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
CREATE INDEX IF NOT EXISTS ix_orders_status_created
ON orders (status, created_at DESC);
`).Error; err != nil {
			log.Error("failed to create index ix_orders_status_created", zap.Error(err))
			return err
		}

		// polling path: look up payment rows awaiting confirmation
		if err := db.WithContext(ctx).Exec(`
CREATE INDEX IF NOT EXISTS ix_payments_status_expires
ON payments (status, expires_at);
`).Error; err != nil {
			log.Error("failed to create index ix_payments_status_expires", zap.Error(err))
			return err
		}
	}

	log.Info("store database migration completed")
	return nil
}
