package enum

// ── Garment categories (drive which measurement fields apply) ──

const (
	CategoryBlouse  = "blouse"
	CategoryKurti   = "kurti"
	CategoryLehenga = "lehenga"
	CategoryPant    = "pant"
)

// ── Order lifecycle ──

const (
	OrderStatusPending    = "pending"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// AdminUsername is the reserved account that may access /admin routes
// and can never be deleted.
const AdminUsername = "admin"
