package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Customer struct {
	ID          int64
	UserID      int64
	Name        string
	Email       string
	Phone       string
	Address     pgtype.Text
	TotalAmount pgtype.Numeric
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID            int64
	CustomerID    int64
	UserID        int64
	Amount        pgtype.Numeric
	AdvanceAmount pgtype.Numeric
	Status        string
	Category      string
	Notes         pgtype.Text
	OrderDate     pgtype.Date
	DeliveryDate  pgtype.Date
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SavedMeasurement struct {
	ID         int64
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
	AudioPath     pgtype.Text
	Notes         pgtype.Text
	OrderDate     pgtype.Date
	DeliveryDate  pgtype.Date
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MeasureField returns a measurement column by its wire name. Paired with
// CreateMeasurementParams.SetMeasureField so the write and read paths share
// one mapping.
func (m SavedMeasurement) MeasureField(name string) pgtype.Float8 {
	switch name {
	case "length":
		return m.Length
	case "across_shoulder":
		return m.AcrossShoulder
	case "upper_chest":
		return m.UpperChest
	case "chest":
		return m.Chest
	case "waist":
		return m.Waist
	case "front_neck_depth":
		return m.FrontNeckDepth
	case "back_neck_depth":
		return m.BackNeckDepth
	case "sleeve_length":
		return m.SleeveLength
	case "armhole":
		return m.Armhole
	case "biceps":
		return m.Biceps
	case "sleeve_cuff":
		return m.SleeveCuff
	case "shoulder_apex":
		return m.ShoulderApex
	case "hip":
		return m.Hip
	case "waist_floor":
		return m.WaistFloor
	case "belt":
		return m.Belt
	case "waist_ankle":
		return m.WaistAnkle
	case "thigh":
		return m.Thigh
	case "ankle":
		return m.Ankle
	}
	return pgtype.Float8{}
}

// SetMeasureField assigns a measurement column by its wire name. Returns
// false for unknown names.
func (p *CreateMeasurementParams) SetMeasureField(name string, v pgtype.Float8) bool {
	switch name {
	case "length":
		p.Length = v
	case "across_shoulder":
		p.AcrossShoulder = v
	case "upper_chest":
		p.UpperChest = v
	case "chest":
		p.Chest = v
	case "waist":
		p.Waist = v
	case "front_neck_depth":
		p.FrontNeckDepth = v
	case "back_neck_depth":
		p.BackNeckDepth = v
	case "sleeve_length":
		p.SleeveLength = v
	case "armhole":
		p.Armhole = v
	case "biceps":
		p.Biceps = v
	case "sleeve_cuff":
		p.SleeveCuff = v
	case "shoulder_apex":
		p.ShoulderApex = v
	case "hip":
		p.Hip = v
	case "waist_floor":
		p.WaistFloor = v
	case "belt":
		p.Belt = v
	case "waist_ankle":
		p.WaistAnkle = v
	case "thigh":
		p.Thigh = v
	case "ankle":
		p.Ankle = v
	default:
		return false
	}
	return true
}
