package models

import "time"

// DictEntry is one labelled value inside a dictionary type, e.g. the
// ("sys_user_sex", "0", "male") triple an admin console renders in selects.
type DictEntry struct {
	ID        string    `db:"id" json:"id"`
	TypeCode  string    `db:"type_code" json:"type_code"`
	Label     string    `db:"label" json:"label"`
	Value     string    `db:"value" json:"value"`
	Sort      int       `db:"sort" json:"sort"`
	Remark    string    `db:"remark" json:"remark"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DictFilter captures filtering criteria for listing dictionary entries.
type DictFilter struct {
	TypeCode string
	Search   string
	Page     int
	PageSize int
}
