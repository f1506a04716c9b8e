package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{user_id}:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Alert stok rendah per produk: alert:lowstock:{product_id}
	KeyLowStockAlert = "alert:lowstock:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	// TTLIdempotencyPending bounds a claim whose holder died before Complete.
	TTLIdempotencyPending = 30 * time.Second
	TTLDedup              = 48 * time.Hour
	TTLStockAlert         = time.Hour
)
