package export

import (
	"strings"

	"catalog-sync-service/internal/models"
)

// BuiltRow is one variant's built row plus the context and images it
// was built from; strategies consume these per product.
type BuiltRow struct {
	Row    FinalRow
	Ctx    RowContext
	Images OrderedImages
}

// ExpandResult is the physical-row output of a strategy
type ExpandResult struct {
	Rows            []FinalRow
	ParentRows      []FinalRow
	SkippedNoHandle int
}

// RowStrategy turns per-variant logical rows into the channel's
// physical row shape. Add receives one product's variant rows in
// order; Finish flushes whatever the strategy buffered.
type RowStrategy interface {
	Add(product []BuiltRow)
	Finish() ExpandResult
}

// StrategyFor selects the channel's strategy. Exactly one applies per
// channel; the parent/child config wins over the channel row mode.
func StrategyFor(channel models.ChannelConfig, parentCfg *models.ParentChildConfig, builder *RowBuilder, policy models.ClientPolicy) RowStrategy {
	if parentCfg != nil || channel.RowMode == models.RowModeParentChild {
		maxImages := policy.MaxGroupImages
		if parentCfg != nil && parentCfg.MaxImages > 0 {
			maxImages = parentCfg.MaxImages
		}
		if maxImages <= 0 {
			maxImages = models.DefaultMaxGroupImages
		}
		cfg := models.ParentChildConfig{}
		if parentCfg != nil {
			cfg = *parentCfg
		}
		return &parentChildStrategy{channel: channel, cfg: cfg, builder: builder, maxImages: maxImages, groups: make(map[string]*handleGroup)}
	}
	if channel.RowMode == models.RowModeMultiRow {
		return &multiRowStrategy{channel: channel, builder: builder}
	}
	return &defaultStrategy{channel: channel}
}

// defaultStrategy emits one physical row per variant with the uniform
// column key set; tag channels additionally carry the image mapping.
type defaultStrategy struct {
	channel models.ChannelConfig
	result  ExpandResult
}

func (s *defaultStrategy) Add(product []BuiltRow) {
	for _, br := range product {
		row := br.Row.Clone()
		if s.channel.UsesImageTags {
			for tag, url := range br.Images.ByTag {
				row[tag] = url
			}
		}
		s.result.Rows = append(s.result.Rows, row)
	}
}

func (s *defaultStrategy) Finish() ExpandResult {
	return s.result
}

// multiRowStrategy splits array-valued columns into one physical row
// per element. Same-value columns repeat on every row; each row carries
// its array columns' i-th elements, nil once a column runs out. The
// image mapping lands on row zero only.
type multiRowStrategy struct {
	channel models.ChannelConfig
	builder *RowBuilder
	result  ExpandResult
}

func (s *multiRowStrategy) Add(product []BuiltRow) {
	arrayKeys := make(map[string]bool, len(s.channel.ArrayValueColumns))
	for _, col := range s.channel.ArrayValueColumns {
		arrayKeys[s.builder.ColumnKey(col)] = true
	}
	sep := s.channel.Separator()

	for _, br := range product {
		elements := make(map[string][]string, len(arrayKeys))
		rowCount := 1
		for key := range arrayKeys {
			v, ok := br.Row[key]
			if !ok || v == nil {
				continue
			}
			parts := splitArrayValue(v, sep)
			elements[key] = parts
			if len(parts) > rowCount {
				rowCount = len(parts)
			}
		}

		for i := 0; i < rowCount; i++ {
			row := br.Row.Clone()
			if i == 0 && s.channel.UsesImageTags {
				for tag, url := range br.Images.ByTag {
					row[tag] = url
				}
			}
			for key, parts := range elements {
				if i < len(parts) {
					row[key] = parts[i]
				} else {
					row[key] = nil
				}
			}
			s.result.Rows = append(s.result.Rows, row)
		}
	}
}

func (s *multiRowStrategy) Finish() ExpandResult {
	return s.result
}

func splitArrayValue(v interface{}, sep string) []string {
	if list, ok := v.([]interface{}); ok {
		out := make([]string, len(list))
		for i, e := range list {
			out[i] = strings.TrimSpace(Stringify(e))
		}
		return out
	}
	parts := strings.Split(Stringify(v), sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// handleGroup is one parent handle's accumulated physical rows
type handleGroup struct {
	rows     []FinalRow
	fillIdx  int
	firstRow FinalRow
	firstCtx RowContext
}

// parentChildStrategy groups variants by a handle column. The first
// variant of a group produces one physical row per image up to the
// image cap; later variants contribute a column subset, round-robin
// filled into existing image rows before appending. A parent row per
// group is synthesized at the end from the configured key mapping.
type parentChildStrategy struct {
	channel   models.ChannelConfig
	cfg       models.ParentChildConfig
	builder   *RowBuilder
	maxImages int

	groups  map[string]*handleGroup
	order   []string
	skipped int
}

func (s *parentChildStrategy) Add(product []BuiltRow) {
	handleKey := s.builder.ColumnKey(s.cfg.HandleColumn)
	imageKey := ""
	if s.cfg.ImageColumn != "" {
		imageKey = s.builder.ColumnKey(s.cfg.ImageColumn)
	}

	for _, br := range product {
		handle := strings.TrimSpace(Stringify(br.Row[handleKey]))
		if handle == "" {
			s.skipped++
			continue
		}

		group, ok := s.groups[handle]
		if !ok {
			group = &handleGroup{fillIdx: 1, firstRow: br.Row, firstCtx: br.Ctx}
			s.groups[handle] = group
			s.order = append(s.order, handle)
			s.addFirstVariant(group, br, handleKey, imageKey)
			continue
		}
		s.addChildVariant(group, br, handleKey)
	}
}

func (s *parentChildStrategy) addFirstVariant(group *handleGroup, br BuiltRow, handleKey, imageKey string) {
	images := br.Images.Flat
	if len(images) > s.maxImages {
		images = images[:s.maxImages]
	}

	first := br.Row.Clone()
	if imageKey != "" && len(images) > 0 {
		first[imageKey] = images[0]
	}
	group.rows = append(group.rows, first)

	// one near-empty physical row per remaining image
	for _, url := range images[min(1, len(images)):] {
		row := s.builder.EmptyRow()
		row[handleKey] = first[handleKey]
		if imageKey != "" {
			row[imageKey] = url
		}
		group.rows = append(group.rows, row)
	}
}

func (s *parentChildStrategy) addChildVariant(group *handleGroup, br BuiltRow, handleKey string) {
	subset := make(map[string]interface{}, len(s.cfg.ChildColumns))
	for _, col := range s.cfg.ChildColumns {
		key := s.builder.ColumnKey(col)
		subset[key] = br.Row[key]
	}

	if group.fillIdx < len(group.rows) {
		target := group.rows[group.fillIdx]
		for key, v := range subset {
			target[key] = v
		}
		group.fillIdx++
		return
	}

	row := s.builder.EmptyRow()
	row[handleKey] = group.firstRow[handleKey]
	for key, v := range subset {
		row[key] = v
	}
	group.rows = append(group.rows, row)
	group.fillIdx = len(group.rows)
}

func (s *parentChildStrategy) Finish() ExpandResult {
	result := ExpandResult{SkippedNoHandle: s.skipped}
	for _, handle := range s.order {
		group := s.groups[handle]
		result.Rows = append(result.Rows, group.rows...)
		if len(s.cfg.ParentMapping) > 0 {
			result.ParentRows = append(result.ParentRows, s.parentRow(group))
		}
	}
	return result
}

// parentRow synthesizes the group's parent from the ordered mapping:
// the literal "#child" copies the key's value from the first child row,
// anything else evaluates as a formula against the first variant's
// context.
func (s *parentChildStrategy) parentRow(group *handleGroup) FinalRow {
	row := make(FinalRow, len(s.cfg.ParentMapping))
	for _, entry := range s.cfg.ParentMapping {
		key := s.builder.ColumnKey(entry.Key)
		if entry.Expression == "#child" {
			row[key] = group.firstRow[key]
			continue
		}
		v, err := EvalFormula(entry.Expression, group.firstCtx)
		if err != nil {
			row[key] = nil
			continue
		}
		row[key] = v
	}
	return row
}
