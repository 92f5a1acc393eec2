package registry

// Builtin returns the entity specifications shipped with the service. They
// cover the SpaceX public catalogue; operators can extend or override them
// from configuration.
func Builtin() []*EntitySpec {
	return []*EntitySpec{
		{
			Name:       "rockets",
			Endpoint:   "/v4/rockets",
			PrimaryKey: "rocket_id",
			Columns: []string{
				"rocket_id",
				"name",
				"type",
				"active",
				"stages",
				"boosters",
				"cost_per_launch",
				"success_rate_pct",
				"first_flight",
				"country",
				"company",
			},
			Renames: map[string]string{
				"id": "rocket_id",
			},
			Casts: map[string]ColumnType{
				"rocket_id":        TypeString,
				"name":             TypeString,
				"type":             TypeString,
				"active":           TypeBoolean,
				"stages":           TypeInteger,
				"boosters":         TypeInteger,
				"cost_per_launch":  TypeInteger,
				"success_rate_pct": TypeFloat,
				"first_flight":     TypeString,
				"country":          TypeString,
				"company":          TypeString,
			},
			Required: []string{"rocket_id", "name"},
		},
		{
			Name:       "launches",
			Endpoint:   "/v4/launches",
			PrimaryKey: "launch_id",
			Columns: []string{
				"launch_id",
				"name",
				"date_utc",
				"flight_number",
				"rocket",
				"success",
				"upcoming",
				"details",
				"payloads",
			},
			Renames: map[string]string{
				"id": "launch_id",
			},
			Casts: map[string]ColumnType{
				"launch_id":     TypeString,
				"name":          TypeString,
				"date_utc":      TypeTimestamp,
				"flight_number": TypeInteger,
				"rocket":        TypeString,
				"success":       TypeBoolean,
				"upcoming":      TypeBoolean,
				"details":       TypeString,
				"payloads":      TypeJSON,
			},
			Required:        []string{"launch_id", "name", "date_utc"},
			WatermarkColumn: "date_utc",
		},
	}
}
