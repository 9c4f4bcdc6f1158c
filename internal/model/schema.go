package model

type SchemaColumn struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	IsNullable  bool   `json:"is_nullable"`
	PrimaryKey  bool   `json:"primary_key"`
	Description string `json:"description,omitempty"`
}

type Schema struct {
	Name    string         `json:"name"`
	Columns []SchemaColumn `json:"columns"`
}
