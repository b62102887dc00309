package domain

// Field names of the KIR form.
const (
	FieldNationalID           = "national_id"
	FieldFullName             = "full_name"
	FieldDateOfBirth          = "date_of_birth"
	FieldGender               = "gender"
	FieldMaritalStatus        = "marital_status"
	FieldMarriageDate         = "marriage_date"
	FieldSeparationDate       = "separation_date"
	FieldAddress              = "address"
	FieldDistrict             = "district"
	FieldPhone                = "phone"
	FieldMembers              = "members"
	FieldEmploymentStatus     = "employment_status"
	FieldMonthlyIncome        = "monthly_income"
	FieldProgrammes           = "programmes"
	FieldDeclarationConfirmed = "declaration_confirmed"
)

// MaritalStatusMarried is the marital_status value that makes a marriage date required.
const MaritalStatusMarried = "married"

var (
	specNationalID     = FieldSpec{Name: FieldNationalID, Label: "National ID"}
	specFullName       = FieldSpec{Name: FieldFullName, Label: "Full name"}
	specDateOfBirth    = FieldSpec{Name: FieldDateOfBirth, Label: "Date of birth"}
	specGender         = FieldSpec{Name: FieldGender, Label: "Gender"}
	specMaritalStatus  = FieldSpec{Name: FieldMaritalStatus, Label: "Marital status"}
	specMarriageDate   = FieldSpec{Name: FieldMarriageDate, Label: "Marriage date"}
	specSeparationDate = FieldSpec{Name: FieldSeparationDate, Label: "Divorce or widowed date"}
	specAddress        = FieldSpec{Name: FieldAddress, Label: "Address"}
	specDistrict       = FieldSpec{Name: FieldDistrict, Label: "District"}
	specPhone          = FieldSpec{Name: FieldPhone, Label: "Phone"}
	specMembers        = FieldSpec{Name: FieldMembers, Label: "Household member"}
	specEmployment     = FieldSpec{Name: FieldEmploymentStatus, Label: "Employment status"}
	specIncome         = FieldSpec{Name: FieldMonthlyIncome, Label: "Monthly income"}
	specProgrammes     = FieldSpec{Name: FieldProgrammes, Label: "Programme"}
	specDeclaration    = FieldSpec{Name: FieldDeclarationConfirmed, Label: "Declaration"}

	specMemberName         = FieldSpec{Name: "name", Label: "name"}
	specMemberRelationship = FieldSpec{Name: "relationship", Label: "relationship"}
)

// KIRSteps returns the eight-step head-of-household form.
func KIRSteps() Steps {
	steps, err := NewSteps(
		Step{
			Number:   1,
			Title:    "Identity",
			Required: []FieldSpec{specNationalID, specFullName, specDateOfBirth, specGender},
			Rules:    []Rule{NationalIDFormat(specNationalID), ValidDate(specDateOfBirth)},
		},
		Step{
			Number:   2,
			Title:    "Marital status",
			Required: []FieldSpec{specMaritalStatus},
			Rules: []Rule{
				RequiredWhen(FieldMaritalStatus, MaritalStatusMarried, specMarriageDate),
				ValidDate(specMarriageDate),
			},
		},
		Step{
			Number: 3,
			Title:  "Marital history",
			Rules:  []Rule{ValidDate(specSeparationDate), NotBefore(specMarriageDate, specSeparationDate)},
		},
		Step{
			Number:   4,
			Title:    "Address",
			Required: []FieldSpec{specAddress, specDistrict, specPhone},
		},
		Step{
			Number: 5,
			Title:  "Household members",
			Rules: []Rule{
				RowsComplete(specMembers, specMemberName, specMemberRelationship),
				RowsMaxLength(specMembers, specMemberName, MaxMemberNameLength),
				RowsMaxLength(specMembers, specMemberRelationship, MaxRelationshipLength),
				RowsNationalID(specMembers, "national_id"),
			},
		},
		Step{
			Number:   6,
			Title:    "Income",
			Required: []FieldSpec{specEmployment, specIncome},
			Rules:    []Rule{NonNegativeAmount(specIncome)},
		},
		Step{
			Number: 7,
			Title:  "Programmes",
			Rules:  []Rule{RowsComplete(specProgrammes, FieldSpec{Name: "name", Label: "name"})},
		},
		Step{
			Number:   8,
			Title:    "Declaration",
			Required: []FieldSpec{specDeclaration},
		},
	)
	if err != nil {
		panic(err)
	}
	return steps
}
