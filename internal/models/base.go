package models

import (
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

type IBase interface {
	GenIDIfEmpty()
	GenID()
	SetID(id utils.ShortID)
}

type Base struct {
	ID utils.ShortID `bson:"_id,omitempty" json:"id,omitempty"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = utils.NewShortID()
}

func (m *Base) SetID(id utils.ShortID) {
	m.ID = id
}

func NewBase() Base {
	return Base{
		ID: utils.NewShortID(),
	}
}
