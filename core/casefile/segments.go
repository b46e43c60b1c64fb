package casefile

// Segment is a typed loss-curve segment: the marginal loss Factor applies up
// to the absolute flow Limit.
type Segment struct {
	Limit  float64
	Factor float64
}

// Loss returns the interconnector's loss model.
func (ic *Interconnector) Loss() *LossModel {
	return &ic.LossModel.LossModel
}

// SegmentList converts the raw loss model segments, preserving order.
func (m LossModel) SegmentList(interconnectorID string) ([]Segment, error) {
	out := make([]Segment, 0, len(m.Segments.Segment))
	for _, raw := range m.Segments.Segment {
		if raw.Limit == nil {
			return nil, newLookupError("loss segment", interconnectorID, "@Limit")
		}
		if raw.Factor == nil {
			return nil, newLookupError("loss segment", interconnectorID, "@Factor")
		}
		out = append(out, Segment{Limit: float64(*raw.Limit), Factor: float64(*raw.Factor)})
	}
	return out, nil
}
