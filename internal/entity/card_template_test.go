package entity

import "testing"

func TestCardTemplateValidate(t *testing.T) {
	tests := []struct {
		name     string
		template CardTemplate
		wantErr  bool
	}{
		{
			name: "valid template",
			template: CardTemplate{
				PatternID: "standard_v1",
				Fields: TemplateFields{
					{FieldName: "employee_id", Required: true},
					{FieldName: "name", Required: true},
					{FieldName: "department"},
				},
			},
		},
		{
			name: "duplicate field name",
			template: CardTemplate{
				PatternID: "dup_v1",
				Fields: TemplateFields{
					{FieldName: "employee_id", Required: true},
					{FieldName: "employee_id"},
				},
			},
			wantErr: true,
		},
		{
			name: "no required fields",
			template: CardTemplate{
				PatternID: "optional_v1",
				Fields: TemplateFields{
					{FieldName: "department"},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.template.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTemplateFieldsRoundTrip(t *testing.T) {
	fields := TemplateFields{
		{FieldName: "employee_id", QueryPhrase: "사번은 무엇입니까?", ExpectedFormat: `^[0-9]{7}$`, Required: true},
	}

	raw, err := fields.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	var decoded TemplateFields
	if err := decoded.Scan(raw); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if len(decoded) != 1 || decoded[0].FieldName != "employee_id" || !decoded[0].Required {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}
