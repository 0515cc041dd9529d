package transform

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"specado/internal/apperr"
	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/path"
)

// Run applies rules to working in stable priority order (ties broken by
// original slice position), mutating working in place. It stops at the
// first rule that fails and returns that failure as an *apperr.Error
// (KindTransformation, or KindPathSyntax/KindPathWriteConflict for a
// malformed or unwritable path). Optional only excuses an absent source
// value or, for EnumMapping, a value with no mapping entry.
func Run(rules []Rule, working *jsonvalue.Value, tr *lossiness.Tracker) error {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	for _, rule := range ordered {
		if err := applyRule(rule, working, tr); err != nil {
			return err
		}
	}
	return nil
}

func applyRule(rule Rule, working *jsonvalue.Value, tr *lossiness.Tracker) error {
	if rule.Condition != nil && !evalCondition(*rule.Condition, *working) {
		return nil
	}
	return applyTransformation(rule, rule.Transformation, working, tr)
}

func applyTransformation(rule Rule, t Transformation, working *jsonvalue.Value, tr *lossiness.Tracker) error {
	switch t.Kind {
	case KindDefaultValue:
		return applyDefaultValue(rule, t.DefaultValue, working, tr)
	case KindConditional:
		for _, branch := range t.Conditional.Branches {
			if evalCondition(branch.Condition, *working) {
				return applyTransformation(rule, *branch.Transformation, working, tr)
			}
		}
		return nil
	default:
		return applyValueRule(rule, t, working, tr)
	}
}

// applyValueRule covers TypeConversion, EnumMapping, UnitConversion,
// FieldRename, and Custom: all read SourcePath, produce a new value, and
// write it at targetPath().
func applyValueRule(rule Rule, t Transformation, working *jsonvalue.Value, tr *lossiness.Tracker) error {
	srcPath, err := path.Parse(rule.SourcePath)
	if err != nil {
		return apperr.Wrap(apperr.KindPathSyntax, "transformer source_path is malformed", err).WithPath(rule.SourcePath)
	}
	srcVal, found, err := path.Read(*working, srcPath)
	if err != nil {
		return apperr.Wrap(apperr.KindTransformation, "failed reading transformer source_path", err).WithPath(rule.SourcePath)
	}
	if !found {
		if rule.Optional {
			return nil
		}
		return apperr.New(apperr.KindTransformation, fmt.Sprintf("rule %q: required source %q is absent", rule.ID, rule.SourcePath)).WithPath(rule.SourcePath)
	}

	h := tr.BeginTiming()
	var newVal jsonvalue.Value
	var opType lossiness.OperationType
	var code lossiness.Code
	var metadata map[string]string
	skip := false

	switch t.Kind {
	case KindTypeConversion:
		newVal, metadata, err = convertType(srcVal, t.TypeConversion.To)
		opType = lossiness.OpTypeConversion
		code = lossiness.CodeClamp
	case KindEnumMapping:
		newVal, skip, err = mapEnum(srcVal, t.EnumMapping.Mapping, rule.Optional, tr, rule)
		opType = lossiness.OpEnumMapping
		code = lossiness.CodeClamp
	case KindUnitConversion:
		newVal, err = convertUnit(srcVal, t.UnitConversion.Scale, t.UnitConversion.Offset)
		opType = lossiness.OpUnitConversion
		code = lossiness.CodeClamp
	case KindFieldRename:
		newVal = srcVal
		opType = lossiness.OpFieldMove
		code = lossiness.CodeRelocate
	case KindCustom:
		// Spec section 4.6: Custom is opaque and tracked as TypeConversion.
		newVal = srcVal
		opType = lossiness.OpTypeConversion
		code = lossiness.CodeClamp
	default:
		tr.EndTiming(h)
		return apperr.New(apperr.KindInternal, fmt.Sprintf("unknown transformation kind %q", t.Kind))
	}
	if err != nil {
		tr.EndTiming(h)
		return apperr.Wrap(apperr.KindTransformation, fmt.Sprintf("rule %q failed", rule.ID), err).WithPath(rule.SourcePath)
	}
	if skip {
		tr.EndTiming(h)
		return nil
	}

	target := rule.targetPath()
	targetPath, perr := path.Parse(target)
	if perr != nil {
		tr.EndTiming(h)
		return apperr.Wrap(apperr.KindPathSyntax, "transformer target_path is malformed", perr).WithPath(target)
	}
	oldVal, hadOld, werr := path.Write(working, targetPath, newVal)
	if werr != nil {
		tr.EndTiming(h)
		return apperr.Wrap(apperr.KindPathWriteConflict, "transformer write failed", werr).WithPath(target)
	}
	if hadOld && jsonvalue.Equal(oldVal, newVal) {
		tr.EndTiming(h)
		return nil
	}
	var before *jsonvalue.Value
	if hadOld {
		before = &oldVal
	}
	tr.Record(lossiness.RecordInput{
		Code:          code,
		Path:          target,
		Message:       fmt.Sprintf("rule %q applied", rule.ID),
		Before:        before,
		After:         &newVal,
		Severity:      lossiness.SeverityInfo,
		OperationType: opType,
		Metadata:      metadata,
	})
	tr.EndTiming(h)
	return nil
}

func applyDefaultValue(rule Rule, params *DefaultValueParams, working *jsonvalue.Value, tr *lossiness.Tracker) error {
	srcPath, err := path.Parse(rule.SourcePath)
	if err != nil {
		return apperr.Wrap(apperr.KindPathSyntax, "transformer source_path is malformed", err).WithPath(rule.SourcePath)
	}
	_, found, err := path.Read(*working, srcPath)
	if err != nil {
		return apperr.Wrap(apperr.KindTransformation, "failed reading transformer source_path", err).WithPath(rule.SourcePath)
	}
	if found {
		return nil
	}
	h := tr.BeginTiming()
	target := rule.targetPath()
	targetPath, perr := path.Parse(target)
	if perr != nil {
		tr.EndTiming(h)
		return apperr.Wrap(apperr.KindPathSyntax, "transformer target_path is malformed", perr).WithPath(target)
	}
	if _, _, werr := path.Write(working, targetPath, params.Value); werr != nil {
		tr.EndTiming(h)
		return apperr.Wrap(apperr.KindPathWriteConflict, "transformer default-value write failed", werr).WithPath(target)
	}
	after := params.Value
	tr.Record(lossiness.RecordInput{
		Code:          lossiness.CodeClamp,
		Path:          target,
		Message:       fmt.Sprintf("rule %q applied a default value", rule.ID),
		After:         &after,
		Severity:      lossiness.SeverityInfo,
		OperationType: lossiness.OpDefaultApplied,
	})
	tr.EndTiming(h)
	return nil
}

func evalCondition(c Condition, root jsonvalue.Value) bool {
	p, err := path.Parse(c.Path)
	if err != nil {
		return false
	}
	val, found, err := path.Read(root, p)
	if err != nil {
		return false
	}
	switch c.Op {
	case OpExists:
		return found
	case OpNotExists:
		return !found
	case OpEquals:
		return found && jsonvalue.Equal(val, c.Value)
	case OpNotEquals:
		return !found || !jsonvalue.Equal(val, c.Value)
	default:
		return false
	}
}

func convertType(v jsonvalue.Value, to string) (jsonvalue.Value, map[string]string, error) {
	switch to {
	case "string":
		switch v.Kind() {
		case jsonvalue.KindString:
			return v, nil, nil
		case jsonvalue.KindNumber:
			return jsonvalue.String(strconv.FormatFloat(v.Number(), 'g', -1, 64)), nil, nil
		case jsonvalue.KindBool:
			return jsonvalue.String(strconv.FormatBool(v.Bool())), nil, nil
		default:
			return jsonvalue.Value{}, nil, fmt.Errorf("cannot convert %s to string", v.Kind())
		}
	case "number":
		switch v.Kind() {
		case jsonvalue.KindNumber:
			return v, nil, nil
		case jsonvalue.KindString:
			f, err := strconv.ParseFloat(v.String_(), 64)
			if err != nil {
				return jsonvalue.Value{}, nil, fmt.Errorf("cannot convert %q to number: %w", v.String_(), err)
			}
			return jsonvalue.Number(f), nil, nil
		default:
			return jsonvalue.Value{}, nil, fmt.Errorf("cannot convert %s to number", v.Kind())
		}
	case "integer":
		var f float64
		switch v.Kind() {
		case jsonvalue.KindNumber:
			f = v.Number()
		case jsonvalue.KindString:
			parsed, err := strconv.ParseFloat(v.String_(), 64)
			if err != nil {
				return jsonvalue.Value{}, nil, fmt.Errorf("cannot convert %q to integer: %w", v.String_(), err)
			}
			f = parsed
		default:
			return jsonvalue.Value{}, nil, fmt.Errorf("cannot convert %s to integer", v.Kind())
		}
		truncated := math.Trunc(f)
		meta := map[string]string{"rounding": "truncate_toward_zero"}
		if truncated != f {
			meta["discarded_fraction"] = strconv.FormatFloat(f-truncated, 'g', -1, 64)
		}
		return jsonvalue.Number(truncated), meta, nil
	default:
		return jsonvalue.Value{}, nil, fmt.Errorf("unknown type conversion target %q", to)
	}
}

func mapEnum(v jsonvalue.Value, mapping map[string]string, optional bool, tr *lossiness.Tracker, rule Rule) (jsonvalue.Value, bool, error) {
	if !v.IsString() {
		return jsonvalue.Value{}, false, fmt.Errorf("enum mapping source must be a string, got %s", v.Kind())
	}
	out, ok := mapping[v.String_()]
	if ok {
		return jsonvalue.String(out), false, nil
	}
	if !optional {
		return jsonvalue.Value{}, false, fmt.Errorf("no enum mapping for value %q", v.String_())
	}
	tr.Record(lossiness.RecordInput{
		Code:          lossiness.CodeMapFallback,
		Path:          rule.SourcePath,
		Message:       fmt.Sprintf("no enum mapping for value %q; rule %q skipped", v.String_(), rule.ID),
		Severity:      lossiness.SeverityWarning,
		OperationType: lossiness.OpEnumMapping,
	})
	return jsonvalue.Value{}, true, nil
}

func convertUnit(v jsonvalue.Value, scale, offset float64) (jsonvalue.Value, error) {
	if !v.IsNumber() {
		return jsonvalue.Value{}, fmt.Errorf("unit conversion source must be a number, got %s", v.Kind())
	}
	return jsonvalue.Number(v.Number()*scale + offset), nil
}
