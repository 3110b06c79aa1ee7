package schema

import "github.com/koustreak/pgcatalog/internal/dialect"

// Table describes one table as the dialect reads it
type Table struct {
	Name       string              `json:"name" yaml:"name"`
	Columns    []dialect.Column    `json:"columns" yaml:"columns"`
	Indexes    []dialect.Index     `json:"indexes" yaml:"indexes"`
	PrimaryKey *dialect.PrimaryKey `json:"primary_key" yaml:"primary_key"` // nil when the table has no primary key
}

// Schema is the full introspected database
type Schema struct {
	Database      string  `json:"database" yaml:"database"`
	ServerVersion int     `json:"server_version" yaml:"server_version"`
	Tables        []Table `json:"tables" yaml:"tables"`
}

// Table returns the table called name, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}
