package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const measurementColumns = `id, user_id, customer_id, order_id, category,
	length, across_shoulder, upper_chest, chest, waist,
	front_neck_depth, back_neck_depth, sleeve_length, armhole, biceps,
	sleeve_cuff, shoulder_apex, hip, waist_floor, belt,
	waist_ankle, thigh, ankle,
	advance_amount, image_path, audio_path, notes, order_date, delivery_date,
	created_at, updated_at`

const measurementColumnsM = `m.id, m.user_id, m.customer_id, m.order_id, m.category,
	m.length, m.across_shoulder, m.upper_chest, m.chest, m.waist,
	m.front_neck_depth, m.back_neck_depth, m.sleeve_length, m.armhole, m.biceps,
	m.sleeve_cuff, m.shoulder_apex, m.hip, m.waist_floor, m.belt,
	m.waist_ankle, m.thigh, m.ankle,
	m.advance_amount, m.image_path, m.audio_path, m.notes, m.order_date, m.delivery_date,
	m.created_at, m.updated_at`

func measurementDests(m *SavedMeasurement) []any {
	return []any{
		&m.ID, &m.UserID, &m.CustomerID, &m.OrderID, &m.Category,
		&m.Length, &m.AcrossShoulder, &m.UpperChest, &m.Chest, &m.Waist,
		&m.FrontNeckDepth, &m.BackNeckDepth, &m.SleeveLength, &m.Armhole, &m.Biceps,
		&m.SleeveCuff, &m.ShoulderApex, &m.Hip, &m.WaistFloor, &m.Belt,
		&m.WaistAnkle, &m.Thigh, &m.Ankle,
		&m.AdvanceAmount, &m.ImagePath, &m.AudioPath, &m.Notes, &m.OrderDate, &m.DeliveryDate,
		&m.CreatedAt, &m.UpdatedAt,
	}
}

func scanMeasurement(row interface{ Scan(dest ...any) error }) (SavedMeasurement, error) {
	var m SavedMeasurement
	err := row.Scan(measurementDests(&m)...)
	return m, err
}

const createMeasurement = `
INSERT INTO saved_measurements (
	user_id, customer_id, order_id, category,
	length, across_shoulder, upper_chest, chest, waist,
	front_neck_depth, back_neck_depth, sleeve_length, armhole, biceps,
	sleeve_cuff, shoulder_apex, hip, waist_floor, belt,
	waist_ankle, thigh, ankle,
	advance_amount, image_path, notes, order_date, delivery_date
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
RETURNING ` + measurementColumns

type CreateMeasurementParams struct {
	UserID     int64
	CustomerID int64
	OrderID    pgtype.Int8
	Category   string

	Length         pgtype.Float8
	AcrossShoulder pgtype.Float8
	UpperChest     pgtype.Float8
	Chest          pgtype.Float8
	Waist          pgtype.Float8
	FrontNeckDepth pgtype.Float8
	BackNeckDepth  pgtype.Float8
	SleeveLength   pgtype.Float8
	Armhole        pgtype.Float8
	Biceps         pgtype.Float8
	SleeveCuff     pgtype.Float8
	ShoulderApex   pgtype.Float8
	Hip            pgtype.Float8
	WaistFloor     pgtype.Float8
	Belt           pgtype.Float8
	WaistAnkle     pgtype.Float8
	Thigh          pgtype.Float8
	Ankle          pgtype.Float8

	AdvanceAmount pgtype.Numeric
	ImagePath     pgtype.Text
	Notes         pgtype.Text
	OrderDate     pgtype.Date
	DeliveryDate  pgtype.Date
}

func (q *Queries) CreateMeasurement(ctx context.Context, arg CreateMeasurementParams) (SavedMeasurement, error) {
	row := q.db.QueryRow(ctx, createMeasurement,
		arg.UserID, arg.CustomerID, arg.OrderID, arg.Category,
		arg.Length, arg.AcrossShoulder, arg.UpperChest, arg.Chest, arg.Waist,
		arg.FrontNeckDepth, arg.BackNeckDepth, arg.SleeveLength, arg.Armhole, arg.Biceps,
		arg.SleeveCuff, arg.ShoulderApex, arg.Hip, arg.WaistFloor, arg.Belt,
		arg.WaistAnkle, arg.Thigh, arg.Ankle,
		arg.AdvanceAmount, arg.ImagePath, arg.Notes, arg.OrderDate, arg.DeliveryDate)
	return scanMeasurement(row)
}

const getMeasurement = `
SELECT ` + measurementColumns + `
FROM saved_measurements
WHERE id = $1 AND user_id = $2
`

type GetMeasurementParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) GetMeasurement(ctx context.Context, arg GetMeasurementParams) (SavedMeasurement, error) {
	row := q.db.QueryRow(ctx, getMeasurement, arg.ID, arg.UserID)
	return scanMeasurement(row)
}

const getMeasurementByID = `
SELECT ` + measurementColumns + `
FROM saved_measurements
WHERE id = $1
`

// GetMeasurementByID fetches without a user filter; callers must apply the
// owner-or-admin check themselves.
func (q *Queries) GetMeasurementByID(ctx context.Context, id int64) (SavedMeasurement, error) {
	row := q.db.QueryRow(ctx, getMeasurementByID, id)
	return scanMeasurement(row)
}

const listMeasurementsByUser = `
SELECT ` + measurementColumns + `
FROM saved_measurements
WHERE user_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListMeasurementsByUser(ctx context.Context, userID int64) ([]SavedMeasurement, error) {
	rows, err := q.db.Query(ctx, listMeasurementsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedMeasurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const getLatestMeasurementByCustomer = `
SELECT ` + measurementColumns + `
FROM saved_measurements
WHERE customer_id = $1 AND user_id = $2
ORDER BY created_at DESC
LIMIT 1
`

type GetLatestMeasurementByCustomerParams struct {
	CustomerID int64
	UserID     int64
}

func (q *Queries) GetLatestMeasurementByCustomer(ctx context.Context, arg GetLatestMeasurementByCustomerParams) (SavedMeasurement, error) {
	row := q.db.QueryRow(ctx, getLatestMeasurementByCustomer, arg.CustomerID, arg.UserID)
	return scanMeasurement(row)
}

// Job numbers count backwards from the newest measurement: with N
// measurements the newest gets 1 and the oldest gets N. Computed in a
// subquery over the user's full set so a phone filter cannot shift the
// numbering.
const listMeasurementJobs = `
SELECT * FROM (
	SELECT ` + measurementColumnsM + `,
		c.name AS customer_name,
		c.phone AS customer_phone,
		(count(*) OVER ()) - (row_number() OVER (ORDER BY m.created_at ASC)) + 1 AS job_number
	FROM saved_measurements m
	JOIN customers c ON c.id = m.customer_id
	WHERE m.user_id = $1
) t
WHERE ($2::text IS NULL OR t.customer_phone ILIKE '%' || $2 || '%')
ORDER BY t.created_at DESC
`

type ListMeasurementJobsParams struct {
	UserID int64
	Phone  pgtype.Text
}

type MeasurementJobRow struct {
	SavedMeasurement
	CustomerName  string
	CustomerPhone string
	JobNumber     int64
}

func (q *Queries) ListMeasurementJobs(ctx context.Context, arg ListMeasurementJobsParams) ([]MeasurementJobRow, error) {
	rows, err := q.db.Query(ctx, listMeasurementJobs, arg.UserID, arg.Phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MeasurementJobRow
	for rows.Next() {
		var r MeasurementJobRow
		dests := measurementDests(&r.SavedMeasurement)
		dests = append(dests, &r.CustomerName, &r.CustomerPhone, &r.JobNumber)
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const getMeasurementDetail = `
SELECT ` + measurementColumnsM + `,
	c.name AS customer_name,
	o.amount, o.advance_amount, o.order_date, o.delivery_date
FROM saved_measurements m
JOIN customers c ON c.id = m.customer_id
LEFT JOIN orders o ON o.id = m.order_id AND o.customer_id = c.id
WHERE m.id = $1 AND m.user_id = $2
`

type GetMeasurementDetailParams struct {
	ID     int64
	UserID int64
}

type MeasurementDetailRow struct {
	SavedMeasurement
	CustomerName       string
	OrderAmount        pgtype.Numeric
	OrderAdvanceAmount pgtype.Numeric
	OrderOrderDate     pgtype.Date
	OrderDeliveryDate  pgtype.Date
}

func (q *Queries) GetMeasurementDetail(ctx context.Context, arg GetMeasurementDetailParams) (MeasurementDetailRow, error) {
	row := q.db.QueryRow(ctx, getMeasurementDetail, arg.ID, arg.UserID)
	var r MeasurementDetailRow
	dests := measurementDests(&r.SavedMeasurement)
	dests = append(dests, &r.CustomerName,
		&r.OrderAmount, &r.OrderAdvanceAmount, &r.OrderOrderDate, &r.OrderDeliveryDate)
	err := row.Scan(dests...)
	return r, err
}

const updateMeasurementNotes = `
UPDATE saved_measurements
SET notes = $2, updated_at = now()
WHERE id = $1
RETURNING ` + measurementColumns

type UpdateMeasurementNotesParams struct {
	ID    int64
	Notes pgtype.Text
}

func (q *Queries) UpdateMeasurementNotes(ctx context.Context, arg UpdateMeasurementNotesParams) (SavedMeasurement, error) {
	row := q.db.QueryRow(ctx, updateMeasurementNotes, arg.ID, arg.Notes)
	return scanMeasurement(row)
}

const updateMeasurementAudio = `
UPDATE saved_measurements
SET audio_path = $2, updated_at = now()
WHERE id = $1
RETURNING ` + measurementColumns

type UpdateMeasurementAudioParams struct {
	ID        int64
	AudioPath pgtype.Text
}

func (q *Queries) UpdateMeasurementAudio(ctx context.Context, arg UpdateMeasurementAudioParams) (SavedMeasurement, error) {
	row := q.db.QueryRow(ctx, updateMeasurementAudio, arg.ID, arg.AudioPath)
	return scanMeasurement(row)
}

const updateMeasurementAdvance = `
UPDATE saved_measurements
SET advance_amount = $2, updated_at = now()
WHERE id = $1
RETURNING ` + measurementColumns

type UpdateMeasurementAdvanceParams struct {
	ID            int64
	AdvanceAmount pgtype.Numeric
}

func (q *Queries) UpdateMeasurementAdvance(ctx context.Context, arg UpdateMeasurementAdvanceParams) (SavedMeasurement, error) {
	row := q.db.QueryRow(ctx, updateMeasurementAdvance, arg.ID, arg.AdvanceAmount)
	return scanMeasurement(row)
}

const getMeasurementByAudioPath = `
SELECT ` + measurementColumns + `
FROM saved_measurements
WHERE audio_path = $1
`

func (q *Queries) GetMeasurementByAudioPath(ctx context.Context, audioPath string) (SavedMeasurement, error) {
	row := q.db.QueryRow(ctx, getMeasurementByAudioPath, audioPath)
	return scanMeasurement(row)
}

const listMeasurementsAdmin = `
SELECT ` + measurementColumnsM + `,
	u.username
FROM saved_measurements m
JOIN users u ON u.id = m.user_id
WHERE ($1::bigint IS NULL OR m.user_id = $1)
ORDER BY m.created_at DESC
LIMIT $2 OFFSET $3
`

type ListMeasurementsAdminParams struct {
	UserID pgtype.Int8
	Limit  int32
	Offset int32
}

type AdminMeasurementRow struct {
	SavedMeasurement
	Username string
}

func (q *Queries) ListMeasurementsAdmin(ctx context.Context, arg ListMeasurementsAdminParams) ([]AdminMeasurementRow, error) {
	rows, err := q.db.Query(ctx, listMeasurementsAdmin, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminMeasurementRow
	for rows.Next() {
		var r AdminMeasurementRow
		dests := measurementDests(&r.SavedMeasurement)
		dests = append(dests, &r.Username)
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const countMeasurementsAdmin = `
SELECT count(*)
FROM saved_measurements
WHERE ($1::bigint IS NULL OR user_id = $1)
`

func (q *Queries) CountMeasurementsAdmin(ctx context.Context, userID pgtype.Int8) (int64, error) {
	row := q.db.QueryRow(ctx, countMeasurementsAdmin, userID)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const deleteMeasurement = `
DELETE FROM saved_measurements
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteMeasurement(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteMeasurement, id)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}
