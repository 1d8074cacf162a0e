package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// View field names requested from VIEW_PARCEIROS_GUARDIAN, in request order.
const (
	FieldCode              = "SKN_CODIGO"
	FieldDescription       = "SKN_DECRICAO"
	FieldCorporateName     = "SKN_RAZAOSOCIAL"
	FieldTaxID             = "SKN_CNPJ"
	FieldStateRegistration = "SKN_INSCRICAO_ESTADUAL"
	FieldAddress           = "SKN_ENDERECO"
	FieldComplement        = "SKN_COMPLEMENTO"
	FieldMunicipality      = "SKN_MUNICIPIO"
	FieldStateCode         = "SNK_EST_CODIGO"
	FieldPostalCode        = "SNK_CEP"
	FieldPhone             = "SNK_TELEFONE"
)

// PartnerViewFields is the ordered field list sent with every view query.
var PartnerViewFields = []string{
	FieldCode,
	FieldDescription,
	FieldCorporateName,
	FieldTaxID,
	FieldStateRegistration,
	FieldAddress,
	FieldComplement,
	FieldMunicipality,
	FieldStateCode,
	FieldPostalCode,
	FieldPhone,
}

// RowStatusPending is the status every destination row is inserted with.
const RowStatusPending = "N"

// FieldValue is the ERP's wrapped scalar. A nil Value means the field arrived
// as an empty wrapper ({}).
type FieldValue struct {
	Value *string
}

// PartnerRecord is a single row returned by the partner view, keyed by field name.
type PartnerRecord map[string]FieldValue

// Value returns the trimmed scalar for field. ok is false when the field is
// absent or carries no value.
func (p PartnerRecord) Value(field string) (string, bool) {
	fv, found := p[field]
	if !found || fv.Value == nil {
		return "", false
	}
	return strings.TrimSpace(*fv.Value), true
}

// Code returns the numeric partner code.
func (p PartnerRecord) Code() (int64, error) {
	raw, ok := p.Value(FieldCode)
	if !ok || raw == "" {
		return 0, fmt.Errorf("partner record has no %s", FieldCode)
	}
	code, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("partner code %q is not numeric: %w", raw, err)
	}
	return code, nil
}

// PartnerRow is one row of the destination table. Optional text columns are
// nil when the ERP did not send a value.
type PartnerRow struct {
	Code              int64
	Description       *string
	CorporateName     *string
	TaxID             *string
	StateRegistration *string
	Address           *string
	Complement        *string
	Municipality      *string
	StateCode         *string
	PostalCode        *string
	Phone             *string
	InsertedAt        time.Time
	Status            string
}

// NewPartnerRow maps a view record to a destination row stamped with insertedAt.
func NewPartnerRow(rec PartnerRecord, insertedAt time.Time) (PartnerRow, error) {
	code, err := rec.Code()
	if err != nil {
		return PartnerRow{}, err
	}

	opt := func(field string) *string {
		v, ok := rec.Value(field)
		if !ok {
			return nil
		}
		return &v
	}

	return PartnerRow{
		Code:              code,
		Description:       opt(FieldDescription),
		CorporateName:     opt(FieldCorporateName),
		TaxID:             opt(FieldTaxID),
		StateRegistration: opt(FieldStateRegistration),
		Address:           opt(FieldAddress),
		Complement:        opt(FieldComplement),
		Municipality:      opt(FieldMunicipality),
		StateCode:         opt(FieldStateCode),
		PostalCode:        opt(FieldPostalCode),
		Phone:             opt(FieldPhone),
		InsertedAt:        insertedAt,
		Status:            RowStatusPending,
	}, nil
}
