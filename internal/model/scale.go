package model

import (
	"github.com/google/uuid"
)

// Scale is a named question category (a clinical assessment scale) that can
// be selected as the draw filter of a by_scale exam. The engine treats the
// id as opaque; name and code exist only for display.
type Scale struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}
