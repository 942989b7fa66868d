package types

import "github.com/BrandonDHaskell/punchbridge/internal/punch/store"

type LatestResponse struct {
	Count int              `json:"count"`
	Limit int              `json:"limit"`
	Rows  []store.PunchRow `json:"rows"`
}

type LogsResponse struct {
	Count  int              `json:"count"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Since  *string          `json:"since"`
	Rows   []store.PunchRow `json:"rows"`
}

type EmployeeResponse struct {
	Count    int              `json:"count"`
	EnrollID int64            `json:"enrollid"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	Rows     []store.PunchRow `json:"rows"`
}

type HealthResponse struct {
	OK   bool       `json:"ok"`
	MQTT HealthMQTT `json:"mqtt"`
	DB   HealthDB   `json:"db"`
	Time string     `json:"time"`
}

type HealthMQTT struct {
	URL       string `json:"url"`
	Topic     string `json:"topic"`
	Connected bool   `json:"connected"`
}

type HealthDB struct {
	SQLite string `json:"sqlite"`
}
