package export

import (
	"regexp"

	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/models"
)

// ValidationMetadata accumulates per-attribute validation rules across
// a job. Merging only adds or overwrites present fields; it never
// removes a field a previous variant contributed.
type ValidationMetadata map[string]*models.ValidationRules

// Merge folds one attribute's rules into the accumulated set
func (m ValidationMetadata) Merge(key string, rules *models.ValidationRules) {
	if rules == nil {
		return
	}
	acc, ok := m[key]
	if !ok {
		acc = &models.ValidationRules{}
		m[key] = acc
	}
	if rules.MinCharacterLimit != nil {
		acc.MinCharacterLimit = rules.MinCharacterLimit
	}
	if rules.MaxCharacterLimit != nil {
		acc.MaxCharacterLimit = rules.MaxCharacterLimit
	}
	if rules.MinValue != nil {
		acc.MinValue = rules.MinValue
	}
	if rules.MaxValue != nil {
		acc.MaxValue = rules.MaxValue
	}
	if rules.DecimalPlaces != nil {
		acc.DecimalPlaces = rules.DecimalPlaces
	}
	if rules.Type != "" {
		acc.Type = rules.Type
	}
}

// naTokenPattern matches a literal NA token, not substrings like NATURAL
var naTokenPattern = regexp.MustCompile(`(^|[^A-Za-z])NA([^A-Za-z]|$)`)

func hasNAToken(v interface{}) bool {
	s := Stringify(v)
	return s == "NA" || naTokenPattern.MatchString(s)
}

// RowBuilder produces one FinalRow per variant context. It is pure:
// identical inputs yield identical rows and it mutates none of them.
type RowBuilder struct {
	Channel models.ChannelConfig
	Mappers *models.ColumnMappers
	Policy  models.ClientPolicy
	Logger  *logrus.Entry
}

// ColumnKey resolves the row key an attribute writes to. Code-as-header
// channels map labels to codes; others map codes to labels. Unmapped
// attributes keep their own key.
func (b *RowBuilder) ColumnKey(attr string) string {
	if b.Channel.CodeAsHeader {
		if code, ok := b.Mappers.LabelToCode[attr]; ok {
			return code
		}
		return attr
	}
	if label, ok := b.Mappers.CodeToLabel[attr]; ok {
		return label
	}
	return attr
}

// Build evaluates every mapper attribute against the context and
// returns the row, the validation rules seen on this variant and the
// number of recovered cell failures. Cell-level failures (formula,
// measurement) leave nil cells; they never abort the row. The
// marketplace-data override pass runs last, product-level before
// variant-level so the variant wins.
func (b *RowBuilder) Build(profile models.MapperProfile, ctx RowContext, productOverrides, variantOverrides map[string]interface{}) (FinalRow, ValidationMetadata, int) {
	row := b.EmptyRow()
	validations := make(ValidationMetadata)
	failures := 0

	for _, entry := range profile {
		key := b.ColumnKey(entry.Key)
		value, err := b.evaluate(entry.Key, entry.Attribute, ctx)
		if err != nil {
			failures++
			if b.Logger != nil {
				b.Logger.WithField("attribute", entry.Key).Warn(err.Error())
			}
		}
		row[key] = value
		validations.Merge(entry.Key, entry.Attribute.Validations)
	}

	for attr, v := range productOverrides {
		row[b.ColumnKey(attr)] = v
	}
	for attr, v := range variantOverrides {
		row[b.ColumnKey(attr)] = v
	}
	return row, validations, failures
}

// EmptyRow prefills every defined output column with nil so each row
// carries exactly one value (possibly nil) per column, never a missing
// key.
func (b *RowBuilder) EmptyRow() FinalRow {
	row := make(FinalRow, len(b.Mappers.EmptyRow))
	for code := range b.Mappers.EmptyRow {
		key := code
		if !b.Channel.CodeAsHeader {
			if label, ok := b.Mappers.CodeToLabel[code]; ok {
				key = label
			}
		}
		row[key] = nil
	}
	return row
}

func (b *RowBuilder) evaluate(key string, attr models.MapperAttribute, ctx RowContext) (interface{}, error) {
	switch attr.Type {
	case models.AttributeCustom:
		return ResolvePlaceholders(attr.Value, ctx), nil

	case models.AttributeColumn:
		if v, ok := ctx.Lookup(attr.Value + "#catalogus"); ok && v != nil {
			return v, nil
		}
		if v, ok := ctx.Lookup(attr.Value + "#value"); ok {
			return v, nil
		}
		return nil, nil

	case models.AttributeFormula:
		v, err := EvalFormula(attr.Value, ctx)
		if err != nil {
			return nil, &RowEvaluationError{Attribute: key, Err: err}
		}
		return v, nil

	case models.AttributeAI, models.AttributeAIAssistant:
		return b.evaluateEnriched(attr, ctx), nil

	case models.AttributeMeasurement:
		if attr.NextStep == nil {
			return nil, nil
		}
		raw, ok := ctx.Lookup(attr.Value)
		if !ok || raw == nil {
			return nil, nil
		}
		if converted := ConvertMeasurement(Stringify(raw), attr.NextStep.SourceUnit, attr.NextStep.TargetUnit); converted != nil {
			return *converted, nil
		}
		return nil, nil

	default: // direct
		v, ok := ctx.Lookup(attr.Value)
		if !ok {
			return nil, nil
		}
		if b.Policy.NormalizeNATokens && hasNAToken(v) {
			return nil, nil
		}
		return v, nil
	}
}

// evaluateEnriched resolves ai / ai-assistant attributes from the
// channel-suffixed context value, subject to the client policy.
func (b *RowBuilder) evaluateEnriched(attr models.MapperAttribute, ctx RowContext) interface{} {
	base, _ := ctx.Lookup(attr.Value)

	if b.Policy.ForcesNullFor(attr.Value) && IsEmptyValue(base) {
		return nil
	}

	if b.Policy.PreferCatalogValue {
		if v, ok := ctx.Lookup(attr.Value + "#catalogus"); ok && !IsEmptyValue(v) {
			return v
		}
	}

	v, ok := ctx.Lookup(attr.Value + "#" + b.Channel.Name)
	if !ok || v == nil {
		v = base
	}
	if v == nil {
		return nil
	}
	if b.Policy.NormalizeNATokens && hasNAToken(v) {
		return nil
	}
	return v
}
