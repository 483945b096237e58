package structs

import "github.com/grapholt/boltwire/packstream"

// Node is a labeled, propertied graph vertex (spec §4.3, §4.9).
type Node struct {
	ID         int64
	Labels     []string
	Properties map[string]packstream.Value
}

func (n *Node) Tag() byte       { return TagNode }
func (n *Node) FieldCount() int { return 3 }
func (n *Node) ToFields() []packstream.Value {
	labels := make([]packstream.Value, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = packstream.String(l)
	}
	return []packstream.Value{
		packstream.Int(n.ID),
		packstream.List(labels...),
		propsToMap(n.Properties),
	}
}
func (n *Node) FromFields(f []packstream.Value) error {
	n.ID = f[0].Int
	n.Labels = make([]string, len(f[1].List))
	for i, l := range f[1].List {
		n.Labels[i] = l.Str
	}
	n.Properties = mapToProps(f[2])
	return nil
}

// Relationship is a typed, propertied graph edge between two nodes.
type Relationship struct {
	ID         int64
	StartID    int64
	EndID      int64
	Type       string
	Properties map[string]packstream.Value
}

func (r *Relationship) Tag() byte       { return TagRelationship }
func (r *Relationship) FieldCount() int { return 5 }
func (r *Relationship) ToFields() []packstream.Value {
	return []packstream.Value{
		packstream.Int(r.ID),
		packstream.Int(r.StartID),
		packstream.Int(r.EndID),
		packstream.String(r.Type),
		propsToMap(r.Properties),
	}
}
func (r *Relationship) FromFields(f []packstream.Value) error {
	r.ID = f[0].Int
	r.StartID = f[1].Int
	r.EndID = f[2].Int
	r.Type = f[3].Str
	r.Properties = mapToProps(f[4])
	return nil
}

// UnboundRelationship is a Relationship as seen from within a Path, where
// the start/end node ids are implied by position rather than carried
// explicitly.
type UnboundRelationship struct {
	ID         int64
	Type       string
	Properties map[string]packstream.Value
}

func (u *UnboundRelationship) Tag() byte       { return TagUnboundRelationship }
func (u *UnboundRelationship) FieldCount() int { return 3 }
func (u *UnboundRelationship) ToFields() []packstream.Value {
	return []packstream.Value{
		packstream.Int(u.ID),
		packstream.String(u.Type),
		propsToMap(u.Properties),
	}
}
func (u *UnboundRelationship) FromFields(f []packstream.Value) error {
	u.ID = f[0].Int
	u.Type = f[1].Str
	u.Properties = mapToProps(f[2])
	return nil
}

// Path is an alternating sequence of nodes and unbound relationships,
// described compactly as a node list, a relationship list, and a sequence
// of signed relationship indices (sign selects traversal direction).
type Path struct {
	Nodes         []Node
	Relationships []UnboundRelationship
	Sequence      []int64
}

func (p *Path) Tag() byte       { return TagPath }
func (p *Path) FieldCount() int { return 3 }
func (p *Path) ToFields() []packstream.Value {
	nodes := make([]packstream.Value, len(p.Nodes))
	for i := range p.Nodes {
		nodes[i] = packstream.Struct(TagNode, p.Nodes[i].ToFields()...)
	}
	rels := make([]packstream.Value, len(p.Relationships))
	for i := range p.Relationships {
		rels[i] = packstream.Struct(TagUnboundRelationship, p.Relationships[i].ToFields()...)
	}
	seq := make([]packstream.Value, len(p.Sequence))
	for i, s := range p.Sequence {
		seq[i] = packstream.Int(s)
	}
	return []packstream.Value{packstream.List(nodes...), packstream.List(rels...), packstream.List(seq...)}
}
func (p *Path) FromFields(f []packstream.Value) error {
	p.Nodes = make([]Node, len(f[0].List))
	for i, v := range f[0].List {
		if err := p.Nodes[i].FromFields(v.Fields); err != nil {
			return err
		}
	}
	p.Relationships = make([]UnboundRelationship, len(f[1].List))
	for i, v := range f[1].List {
		if err := p.Relationships[i].FromFields(v.Fields); err != nil {
			return err
		}
	}
	p.Sequence = make([]int64, len(f[2].List))
	for i, v := range f[2].List {
		p.Sequence[i] = v.Int
	}
	return nil
}

// Point2D is a planar spatial point identified by an SRID.
type Point2D struct {
	SRID int64
	X, Y float64
}

func (p *Point2D) Tag() byte       { return TagPoint2D }
func (p *Point2D) FieldCount() int { return 3 }
func (p *Point2D) ToFields() []packstream.Value {
	return []packstream.Value{packstream.Int(p.SRID), packstream.Float(p.X), packstream.Float(p.Y)}
}
func (p *Point2D) FromFields(f []packstream.Value) error {
	p.SRID, p.X, p.Y = f[0].Int, f[1].Float, f[2].Float
	return nil
}

// Point3D is a spatial point in three dimensions identified by an SRID.
type Point3D struct {
	SRID    int64
	X, Y, Z float64
}

func (p *Point3D) Tag() byte       { return TagPoint3D }
func (p *Point3D) FieldCount() int { return 4 }
func (p *Point3D) ToFields() []packstream.Value {
	return []packstream.Value{packstream.Int(p.SRID), packstream.Float(p.X), packstream.Float(p.Y), packstream.Float(p.Z)}
}
func (p *Point3D) FromFields(f []packstream.Value) error {
	p.SRID, p.X, p.Y, p.Z = f[0].Int, f[1].Float, f[2].Float, f[3].Float
	return nil
}

// Date is a calendar date expressed as days since the Unix epoch.
type Date struct {
	EpochDay int64
}

func (d *Date) Tag() byte                    { return TagDate }
func (d *Date) FieldCount() int              { return 1 }
func (d *Date) ToFields() []packstream.Value { return []packstream.Value{packstream.Int(d.EpochDay)} }
func (d *Date) FromFields(f []packstream.Value) error {
	d.EpochDay = f[0].Int
	return nil
}

// Time is a time-of-day with a UTC offset, in nanoseconds since midnight.
type Time struct {
	NanoOfDay     int64
	OffsetSeconds int64
}

func (t *Time) Tag() byte       { return TagTime }
func (t *Time) FieldCount() int { return 2 }
func (t *Time) ToFields() []packstream.Value {
	return []packstream.Value{packstream.Int(t.NanoOfDay), packstream.Int(t.OffsetSeconds)}
}
func (t *Time) FromFields(f []packstream.Value) error {
	t.NanoOfDay, t.OffsetSeconds = f[0].Int, f[1].Int
	return nil
}

// LocalTime is a time-of-day with no associated offset or zone.
type LocalTime struct {
	NanoOfDay int64
}

func (l *LocalTime) Tag() byte       { return TagLocalTime }
func (l *LocalTime) FieldCount() int { return 1 }
func (l *LocalTime) ToFields() []packstream.Value {
	return []packstream.Value{packstream.Int(l.NanoOfDay)}
}
func (l *LocalTime) FromFields(f []packstream.Value) error {
	l.NanoOfDay = f[0].Int
	return nil
}

// DateTime is a date-time carrying an explicit UTC offset.
type DateTime struct {
	EpochSeconds  int64
	Nanos         int64
	OffsetSeconds int64
}

func (d *DateTime) Tag() byte       { return TagDateTime }
func (d *DateTime) FieldCount() int { return 3 }
func (d *DateTime) ToFields() []packstream.Value {
	return []packstream.Value{packstream.Int(d.EpochSeconds), packstream.Int(d.Nanos), packstream.Int(d.OffsetSeconds)}
}
func (d *DateTime) FromFields(f []packstream.Value) error {
	d.EpochSeconds, d.Nanos, d.OffsetSeconds = f[0].Int, f[1].Int, f[2].Int
	return nil
}

// DateTimeZoneID is a date-time carrying an IANA zone identifier instead of
// a fixed offset.
type DateTimeZoneID struct {
	EpochSeconds int64
	Nanos        int64
	ZoneID       string
}

func (d *DateTimeZoneID) Tag() byte       { return TagDateTimeZoneID }
func (d *DateTimeZoneID) FieldCount() int { return 3 }
func (d *DateTimeZoneID) ToFields() []packstream.Value {
	return []packstream.Value{packstream.Int(d.EpochSeconds), packstream.Int(d.Nanos), packstream.String(d.ZoneID)}
}
func (d *DateTimeZoneID) FromFields(f []packstream.Value) error {
	d.EpochSeconds, d.Nanos, d.ZoneID = f[0].Int, f[1].Int, f[2].Str
	return nil
}

// LocalDateTime is a date-time with no associated offset or zone.
type LocalDateTime struct {
	EpochSeconds int64
	Nanos        int64
}

func (l *LocalDateTime) Tag() byte       { return TagLocalDateTime }
func (l *LocalDateTime) FieldCount() int { return 2 }
func (l *LocalDateTime) ToFields() []packstream.Value {
	return []packstream.Value{packstream.Int(l.EpochSeconds), packstream.Int(l.Nanos)}
}
func (l *LocalDateTime) FromFields(f []packstream.Value) error {
	l.EpochSeconds, l.Nanos = f[0].Int, f[1].Int
	return nil
}

// Duration is a calendar-aware span: months and days are kept separate from
// seconds/nanoseconds because month/day lengths are not fixed durations.
type Duration struct {
	Months, Days, Seconds, Nanos int64
}

func (d *Duration) Tag() byte       { return TagDuration }
func (d *Duration) FieldCount() int { return 4 }
func (d *Duration) ToFields() []packstream.Value {
	return []packstream.Value{
		packstream.Int(d.Months), packstream.Int(d.Days),
		packstream.Int(d.Seconds), packstream.Int(d.Nanos),
	}
}
func (d *Duration) FromFields(f []packstream.Value) error {
	d.Months, d.Days, d.Seconds, d.Nanos = f[0].Int, f[1].Int, f[2].Int, f[3].Int
	return nil
}

func propsToMap(props map[string]packstream.Value) packstream.Value {
	entries := make([]packstream.MapEntry, 0, len(props))
	for k, v := range props {
		entries = append(entries, packstream.MapEntry{Key: k, Value: v})
	}
	return packstream.Map(entries...)
}

func mapToProps(v packstream.Value) map[string]packstream.Value {
	props := make(map[string]packstream.Value, len(v.Map))
	for _, e := range v.Map {
		props[e.Key] = e.Value
	}
	return props
}
