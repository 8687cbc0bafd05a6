package models

import "time"

// Tutor is the tenant account; every other row carries its id as user_id.
type Tutor struct {
	ID          int64     `json:"id" db:"id"`
	Mobile      string    `json:"mobile" db:"mobile"`
	Name        string    `json:"name" db:"name"`
	TuitionName string    `json:"tuitionName" db:"tuition_name"`
	Address     string    `json:"address" db:"address"`
	Role        RoleType  `json:"role" db:"role"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// DisplayName falls back to the tuition name for accounts without a name.
func (t *Tutor) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.TuitionName
}
