package entity

import "testing"

func TestEmployeeInfoValidate(t *testing.T) {
	tests := []struct {
		name    string
		info    EmployeeInfo
		wantErr bool
	}{
		{
			name: "valid extraction",
			info: EmployeeInfo{EmployeeID: "1234567", Name: "김철수", ExtractionConfidence: 0.95},
		},
		{
			name:    "employee id too short",
			info:    EmployeeInfo{EmployeeID: "123456", Name: "김철수", ExtractionConfidence: 0.95},
			wantErr: true,
		},
		{
			name:    "employee id with letters",
			info:    EmployeeInfo{EmployeeID: "12a4567", Name: "김철수", ExtractionConfidence: 0.95},
			wantErr: true,
		},
		{
			name:    "name too short",
			info:    EmployeeInfo{EmployeeID: "1234567", Name: "김", ExtractionConfidence: 0.95},
			wantErr: true,
		},
		{
			name: "two rune hangul name passes",
			info: EmployeeInfo{EmployeeID: "1234567", Name: "이수", ExtractionConfidence: 0.95},
		},
		{
			name:    "confidence below threshold",
			info:    EmployeeInfo{EmployeeID: "1234567", Name: "김철수", ExtractionConfidence: 0.79},
			wantErr: true,
		},
		{
			name: "confidence exactly at threshold passes",
			info: EmployeeInfo{EmployeeID: "1234567", Name: "김철수", ExtractionConfidence: 0.8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate(0.8)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
