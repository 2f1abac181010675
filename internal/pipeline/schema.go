package pipeline

// FieldKind selects how a FieldSpec derives its value
type FieldKind string

const (
	FieldLookup      FieldKind = "lookup"       // value at Path
	FieldPresence    FieldKind = "presence"     // 1 if Key exists in the object at Path, else 0
	FieldCount       FieldKind = "count"        // length of the list at Path
	FieldCurrencySum FieldKind = "currency_sum" // exact sum of Key over the list at Path
)

// FieldSpec describes how one output feature is derived from a raw record
type FieldSpec struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
	Path Path      `json:"path"`
	Key  string    `json:"key,omitempty"`
}

// Schema is an immutable ordered list of field specs
type Schema struct {
	fields []FieldSpec
	names  []string
}

// NewSchema validates fields and freezes them into a Schema.
func NewSchema(fields ...FieldSpec) (Schema, error) {
	if err := ValidateSchema(fields); err != nil {
		return Schema{}, err
	}
	fs := make([]FieldSpec, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		f.Path = append(Path(nil), f.Path...)
		fs[i] = f
		names[i] = f.Name
	}
	return Schema{fields: fs, names: names}, nil
}

func (s Schema) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the field specs in order.
func (s Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the output column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// CreditBureauSchema returns the feature schema for consumer full-credit reports.
func CreditBureauSchema() Schema {
	consumer := Keys("data", "consumerfullcredit")
	rating := consumer.Key("accountrating")
	summary := consumer.Key("creditaccountsummary")
	personal := consumer.Key("personaldetailssummary")
	delinquency := consumer.Key("deliquencyinformation")

	lookup := func(name string, p Path) FieldSpec {
		return FieldSpec{Name: name, Kind: FieldLookup, Path: p}
	}

	schema, err := NewSchema(
		lookup("no_of_other_accounts_bad", rating.Key("noofotheraccountsbad")),
		lookup("no_of_other_accounts_good", rating.Key("noofotheraccountsgood")),
		lookup("no_of_retail_accounts_bad", rating.Key("noofretailaccountsbad")),
		lookup("no_of_retail_accounts_good", rating.Key("noofretailaccountsgood")),
		lookup("no_of_telecom_accounts_bad", rating.Key("nooftelecomaccountsbad")),
		lookup("no_of_autoloan_accounts_bad", rating.Key("noofautoloanaccountsbad")),
		// bureau key is misspelled at the source
		lookup("no_of_autoloan_accounts_good", rating.Key("noofautoloanccountsgood")),
		lookup("no_of_homeloan_accounts_bad", rating.Key("noofhomeloanaccountsbad")),
		lookup("no_of_telecom_accounts_good", rating.Key("nooftelecomaccountsgood")),
		lookup("no_of_homeloan_accounts_good", rating.Key("noofhomeloanaccountsgood")),
		lookup("no_of_jointloan_accounts_bad", rating.Key("noofjointloanaccountsbad")),
		lookup("no_of_studyloan_accounts_bad", rating.Key("noofstudyloanaccountsbad")),
		lookup("no_of_creditcard_accounts_bad", rating.Key("noofcreditcardaccountsbad")),
		lookup("no_of_jointloan_accounts_good", rating.Key("noofjointloanaccountsgood")),
		lookup("no_of_studyloan_accounts_good", rating.Key("noofstudyloanaccountsgood")),
		lookup("no_of_creditcard_accounts_good", rating.Key("noofcreditcardaccountsgood")),
		lookup("no_of_personalloan_accounts_bad", rating.Key("noofpersonalloanaccountsbad")),
		lookup("no_of_personalloan_accounts_good", rating.Key("noofpersonalloanaccountsgood")),

		lookup("enquiry_matching_rate", consumer.Key("enquirydetails").Key("matchingrate")),
		lookup("no_of_guarantor_accounts", consumer.Key("guarantorcount").Key("accounts")),
		lookup("no_of_guarantors_secured", consumer.Key("guarantorcount").Key("guarantorssecured")),
		lookup("guarantor_date_of_birth", consumer.Key("guarantordetails").Key("guarantordateofbirth")),

		// always the fifth employment entry
		lookup("employment_type", consumer.Key("employmenthistory").At(4).Key("occupation")),
		FieldSpec{Name: "no_of_past_enquiries", Kind: FieldCount, Path: consumer.Key("enquiryhistorytop")},

		lookup("rating", summary.Key("rating")),
		lookup("amount_arrear", summary.Key("amountarrear")),
		lookup("amount_arrear_extra", summary.Key("amountarrear1")),
		lookup("total_accounts", summary.Key("totalaccounts")),
		lookup("total_accounts_extra", summary.Key("totalaccounts1")),
		lookup("total_account_arrear", summary.Key("totalaccountarrear")),
		lookup("total_account_arrear_extra", summary.Key("totalaccountarrear1")),
		lookup("total_judgement_amount", summary.Key("totaljudgementamount")),
		lookup("total_judgement_amount_extra", summary.Key("totaljudgementamount1")),
		lookup("total_outstanding_debt", summary.Key("totaloutstandingdebt")),
		lookup("total_outstanding_debt_extra", summary.Key("totaloutstandingdebt1")),
		lookup("total_dishonoured_amount", summary.Key("totaldishonouredamount")),
		lookup("total_dishonoured_amount_extra", summary.Key("totaldishonouredamount1")),
		lookup("total_monthly_instalment", summary.Key("totalmonthlyinstalment")),
		lookup("total_monthly_instalment_extra", summary.Key("totalmonthlyinstalment1")),
		lookup("total_number_of_judgement", summary.Key("totalnumberofjudgement")),
		lookup("total_number_of_judgement_extra", summary.Key("totalnumberofjudgement1")),
		lookup("total_number_of_dishonoured", summary.Key("totalnumberofdishonoured")),
		lookup("total_number_of_dishonoured_extra", summary.Key("totalnumberofdishonoured1")),
		lookup("total_account_in_good_condition", summary.Key("totalaccountingodcondition")),
		lookup("total_account_in_good_condition_extra", summary.Key("totalaccountingodcondition1")),

		lookup("account_bank_name", delinquency.Key("subscribername")),
		lookup("account_age_date", delinquency.Key("periodnum")),

		FieldSpec{Name: "identification_provision", Kind: FieldPresence, Path: consumer, Key: "identificationhistory"},
		FieldSpec{Name: "total_credit_amount_overdue", Kind: FieldCurrencySum, Path: consumer.Key("creditagreementsummary"), Key: "amountoverdue"},

		lookup("gender", personal.Key("gender")),
		lookup("birthdate", personal.Key("birthdate")),
		lookup("dependants", personal.Key("dependants")),
		lookup("nationality", personal.Key("nationality")),
		lookup("property_owned_type", personal.Key("propertyownedtype")),
	)
	if err != nil {
		panic("credit bureau schema: " + err.Error())
	}
	return schema
}
