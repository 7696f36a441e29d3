package resident

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// GroupHome is a residence staff can select as their working context.
type GroupHome struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Resident struct {
	ID          int64      `json:"id"`
	GroupHomeID int64      `json:"group_home_id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DisplayName is "First Last", or "Resident #id" when both names are blank.
func (r *Resident) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
	if name == "" {
		return "Resident #" + strconv.FormatInt(r.ID, 10)
	}
	return name
}
