package mapping

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		input string
		want  EntityType
	}{
		{"transaction", EntityTransaction},
		{"Transactions", EntityTransaction},
		{" lead ", EntityLead},
		{"contacts", EntityContact},
		{"opportunities", EntityOpportunity},
		{"TASK", EntityTask},
	}
	for _, tc := range tests {
		got, err := ParseEntityType(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}

	_, err := ParseEntityType("invoice")
	assert.True(t, errors.Is(err, ErrUnsupportedEntity))
}

func TestDetect_ExactBeatsSubstringRegardlessOfOrder(t *testing.T) {
	for _, headers := range [][]string{
		{"Date", "Transaction Date"},
		{"Transaction Date", "Date"},
	} {
		d, err := Detect(EntityTransaction, headers)
		require.NoError(t, err)
		assert.Equal(t, "Date", d.Mapping[FieldDate], "headers %v", headers)
		assert.Equal(t, 1.0, d.Confidence[FieldDate])
	}
}

func TestDetect_FirstMatchWinsOnTies(t *testing.T) {
	d, err := Detect(EntityTransaction, []string{"Started Date", "Completed Date", "Description", "Amount"})
	require.NoError(t, err)

	assert.Equal(t, "Started Date", d.Mapping[FieldDate])
	assert.InDelta(t, 0.6, d.Confidence[FieldDate], 1e-9)
	assert.Equal(t, "Description", d.Mapping[FieldDescription])
	assert.Equal(t, "Amount", d.Mapping[FieldAmount])
}

func TestDetect_TransactionDebitCredit(t *testing.T) {
	headers := []string{"Posting Date", "Details", "Debit Amount", "Credit Amount", "Balance", "Category"}
	d, err := Detect(EntityTransaction, headers)
	require.NoError(t, err)

	assert.Equal(t, "Posting Date", d.Mapping[FieldDate])
	assert.InDelta(t, 0.8, d.Confidence[FieldDate], 1e-9)
	assert.Equal(t, "Details", d.Mapping[FieldDescription])
	assert.Equal(t, "", d.Mapping[FieldAmount], "debit/credit headers must not feed amount")
	assert.Equal(t, 0.0, d.Confidence[FieldAmount])
	assert.Equal(t, "Debit Amount", d.Mapping[FieldDebit])
	assert.Equal(t, "Credit Amount", d.Mapping[FieldCredit])
	assert.Equal(t, "Category", d.Mapping[FieldCategory])
	assert.Equal(t, "", d.Mapping[FieldReference])
}

func TestDetect_EveryFieldPresent(t *testing.T) {
	for _, entity := range Entities {
		d, err := Detect(entity, nil)
		require.NoError(t, err)
		for _, f := range Fields(entity) {
			_, ok := d.Mapping[f]
			assert.True(t, ok, "%s mapping missing key %s", entity, f)
			assert.Equal(t, 0.0, d.Confidence[f])
		}
	}
}

func TestDetect_HeaderCanFeedSeveralFields(t *testing.T) {
	d, err := Detect(EntityLead, []string{"Company", "Email", "First Name"})
	require.NoError(t, err)

	assert.Equal(t, "Company", d.Mapping[FieldName])
	assert.Equal(t, "Email", d.Mapping[FieldEmail])
	assert.Equal(t, "First Name", d.Mapping[FieldContactFirstName])
	assert.InDelta(t, 0.9, d.Confidence[FieldContactFirstName], 1e-9)
}

func TestDetect_SeparatorsAndCase(t *testing.T) {
	d, err := Detect(EntityContact, []string{"FIRST_NAME", "last-name", "E-mail", "Job Title", "company name"})
	require.NoError(t, err)

	assert.Equal(t, "FIRST_NAME", d.Mapping[FieldFirstName])
	assert.Equal(t, "last-name", d.Mapping[FieldLastName])
	assert.Equal(t, "E-mail", d.Mapping[FieldEmail])
	assert.Equal(t, "Job Title", d.Mapping[FieldTitle])
	assert.Equal(t, "company name", d.Mapping[FieldCompany])
}

func TestDetect_OpportunityAndTask(t *testing.T) {
	d, err := Detect(EntityOpportunity, []string{"Deal Name", "Account Name", "Deal Value", "Stage", "Expected Close Date", "Probability"})
	require.NoError(t, err)
	assert.Equal(t, "Deal Name", d.Mapping[FieldName])
	assert.Equal(t, "Account Name", d.Mapping[FieldCompany])
	assert.Equal(t, "Deal Value", d.Mapping[FieldValue])
	assert.Equal(t, "Stage", d.Mapping[FieldStage])
	assert.Equal(t, "Expected Close Date", d.Mapping[FieldCloseDate])
	assert.Equal(t, "Probability", d.Mapping[FieldProbability])

	d, err = Detect(EntityTask, []string{"Subject", "Due Date", "Priority", "Status", "Related To"})
	require.NoError(t, err)
	assert.Equal(t, "Subject", d.Mapping[FieldTitle])
	assert.Equal(t, "Due Date", d.Mapping[FieldDueDate])
	assert.Equal(t, "Priority", d.Mapping[FieldPriority])
	assert.Equal(t, "Status", d.Mapping[FieldStatus])
	assert.Equal(t, "Related To", d.Mapping[FieldCompany])
}

func TestDetect_UnsupportedEntity(t *testing.T) {
	_, err := Detect(EntityType("invoice"), []string{"Date"})
	assert.ErrorIs(t, err, ErrUnsupportedEntity)
}

func TestValidate_Transaction(t *testing.T) {
	full := ColumnMapping{FieldDate: "Date", FieldAmount: "Amount", FieldDescription: "Description"}
	v := Validate(EntityTransaction, full)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)

	debitOnly := ColumnMapping{FieldDate: "Date", FieldDebit: "Out", FieldDescription: "Memo"}
	assert.True(t, Validate(EntityTransaction, debitOnly).Valid)

	v = Validate(EntityTransaction, ColumnMapping{FieldDate: ""})
	assert.False(t, v.Valid)
	assert.Equal(t, []string{
		"Missing required column: date",
		"Missing required column: amount (or debit/credit)",
		"Missing required column: description",
	}, v.Errors)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	m := ColumnMapping{FieldName: ""}
	before := m.Clone()
	v := Validate(EntityLead, m)
	assert.False(t, v.Valid)
	assert.Equal(t, []string{"Missing required column: company name"}, v.Errors)
	assert.Equal(t, before, m)
}

func TestValidate_OtherEntities(t *testing.T) {
	assert.True(t, Validate(EntityLead, ColumnMapping{FieldName: "Company"}).Valid)
	assert.True(t, Validate(EntityContact, ColumnMapping{FieldFirstName: "First"}).Valid)
	assert.False(t, Validate(EntityContact, ColumnMapping{FieldLastName: "Last"}).Valid)
	assert.True(t, Validate(EntityOpportunity, ColumnMapping{FieldName: "Deal"}).Valid)
	assert.True(t, Validate(EntityTask, ColumnMapping{FieldTitle: "Task"}).Valid)
	assert.False(t, Validate(EntityTask, ColumnMapping{}).Valid)
	assert.False(t, Validate(EntityType("invoice"), ColumnMapping{}).Valid)
}

func TestApplyAndCheckHeaders(t *testing.T) {
	base := ColumnMapping{FieldDate: "Date", FieldAmount: "Amount", FieldDescription: "Memo"}
	override := ColumnMapping{FieldAmount: "", FieldDebit: "Out", "bogus": "X"}

	m, err := Apply(EntityTransaction, base, override)
	require.NoError(t, err)
	assert.Equal(t, "Date", m[FieldDate])
	assert.Equal(t, "", m[FieldAmount])
	assert.Equal(t, "Out", m[FieldDebit])
	_, ok := m["bogus"]
	assert.False(t, ok)

	assert.NoError(t, CheckHeaders(m, []string{"Date", "Memo", "Out"}))
	err = CheckHeaders(m, []string{"Date", "Memo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `debit -> "Out"`)
}

func TestColumnMapping_JSON(t *testing.T) {
	m := ColumnMapping{FieldDate: "Date", FieldAmount: ""}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"Date","amount":null}`, string(data))

	var back ColumnMapping
	require.NoError(t, json.Unmarshal([]byte(`{"date":"Date","amount":null}`), &back))
	assert.Equal(t, m, back)
}
