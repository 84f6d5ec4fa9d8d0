package metadata

// DataColumn is the per-instance attached-data column on every record
// instance table. It holds a JSON object keyed by field name.
const DataColumn = "custom_field_data"

// RecordType describes one category of record instances that may carry
// custom fields. Instances live in their own table with an id column and
// the attached-data column.
type RecordType struct {
	Name         string `json:"name"`
	Table        string `json:"table"`
	CustomFields bool   `json:"custom_fields"` // whether this type accepts custom fields
}
