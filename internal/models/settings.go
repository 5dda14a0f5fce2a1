package models

// SettingEntry is a document in the settings collection. Public entries are
// served to the console without authentication.
type SettingEntry struct {
	Key    string      `bson:"key" json:"key"`
	Value  interface{} `bson:"value" json:"value"`
	Public bool        `bson:"public" json:"public"`
}
