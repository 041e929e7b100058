package models

import (
	"database/sql"
	"time"
)

type LoadHour struct {
	BusinessDate time.Time
	Hour         int
	LoadMW       float64
}

type RenewableHour struct {
	BusinessDate time.Time
	Hour         int
	PVMW         float64
	WindMW       float64
}

type BaseloadQuarter struct {
	BusinessDate time.Time
	Quarter      int // hour*4 + quarter-of-hour, 0-95
	GenMW        float64
}

type ExchangeHour struct {
	BusinessDate time.Time
	Hour         int
	ExchangeMW   float64 // positive = export
}

type ReserveSlot struct {
	Slot        int // dayOffset*24 + hour, relative to plan start
	AvailableMW float64
	RequiredMW  float64
}

type ReservePlan struct {
	PlanDate  time.Time
	FetchedAt time.Time
	Slots     []ReserveSlot
}

type IngestRun struct {
	ID           int64
	Source       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string // "ok" or "error"
	Error        sql.NullString
	RowCount     int
	QualityFlags sql.NullString // JSON array of validation flags
}

type IngestHealth struct {
	Source     string
	LastRunAt  time.Time
	LastStatus string
	LastError  sql.NullString
	RowCount   int
}

type Brief struct {
	BriefDate time.Time
	Content   string
	Model     string
	CreatedAt time.Time
}

type DayCoverage struct {
	LoadHours        int
	RenewableHours   int
	BaseloadQuarters int
	ExchangeHours    int
}
