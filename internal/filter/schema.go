package filter

// Table aliases the schemas below are written against. Store queries must
// select from these aliases.
const (
	ReservationAlias = "r"
	ReservableAlias  = "v"
	ResourceAlias    = "s"
	SetAlias         = "t"
)

const (
	reservationReservables = "EXISTS (SELECT 1 FROM reservation_reservables rr JOIN reservables rv ON rv.id = rr.reservable_id WHERE rr.reservation_id = r.id AND %s)"
	reservationOwners      = "EXISTS (SELECT 1 FROM reservation_owners o WHERE o.reservation_id = r.id AND %s)"
	reservableSets         = "EXISTS (SELECT 1 FROM reservable_set_members m JOIN reservable_sets ms ON ms.id = m.set_id WHERE m.reservable_id = v.id AND %s)"
	reservableResources    = "EXISTS (SELECT 1 FROM nresources nr JOIN resources nrs ON nrs.id = nr.resource_id WHERE nr.reservable_id = v.id AND %s)"
)

// ReservationSchema filters reservations.
var ReservationSchema = Schema{
	Name: "reservation",
	Fields: map[string]Field{
		"id":                {Column: "r.id", Kind: KindText, Lookups: SlugLookups},
		"reason":            {Column: "r.reason", Kind: KindText, Lookups: TextLookups},
		"start":             {Column: "r.start_ms", Kind: KindTime, Lookups: DateTimeLookups},
		"end":               {Column: "r.end_ms", Kind: KindTime, Lookups: DateTimeLookups},
		"owners":            {Column: "o.username", Exists: reservationOwners, Kind: KindText, Lookups: TextLookups},
		"reservables__slug": {Column: "rv.slug", Exists: reservationReservables, Kind: KindText, Lookups: SlugLookups},
		"reservables__name": {Column: "rv.name", Exists: reservationReservables, Kind: KindText, Lookups: TextLookups},
		"reservables__type": {Column: "rv.type", Exists: reservationReservables, Kind: KindText, Lookups: TextLookups},
	},
	Order: "r.start_ms ASC, r.id COLLATE BINARY ASC",
	Orderable: map[string]string{
		"id":     "r.id COLLATE BINARY",
		"reason": "r.reason COLLATE BINARY",
		"start":  "r.start_ms",
		"end":    "r.end_ms",
	},
}

// ReservableSchema filters reservables.
var ReservableSchema = Schema{
	Name: "reservable",
	Fields: map[string]Field{
		"id":                         {Column: "v.id", Kind: KindNumber, Lookups: NumberLookups},
		"slug":                       {Column: "v.slug", Kind: KindText, Lookups: SlugLookups},
		"name":                       {Column: "v.name", Kind: KindText, Lookups: TextLookups},
		"type":                       {Column: "v.type", Kind: KindText, Lookups: TextLookups},
		"reservableset_set__slug":    {Column: "ms.slug", Exists: reservableSets, Kind: KindText, Lookups: SlugLookups},
		"nresources__n":              {Column: "nr.n", Exists: reservableResources, Kind: KindNumber, Lookups: NumberLookups},
		"nresources__resource__slug": {Column: "nrs.slug", Exists: reservableResources, Kind: KindText, Lookups: SlugLookups},
	},
	Order: "v.slug COLLATE BINARY ASC, v.id ASC",
	Orderable: map[string]string{
		"id":   "v.id",
		"slug": "v.slug COLLATE BINARY",
		"name": "v.name COLLATE BINARY",
		"type": "v.type COLLATE BINARY",
	},
}

// ResourceSchema filters resources.
var ResourceSchema = Schema{
	Name: "resource",
	Fields: map[string]Field{
		"id":   {Column: "s.id", Kind: KindNumber, Lookups: NumberLookups},
		"slug": {Column: "s.slug", Kind: KindText, Lookups: SlugLookups},
		"name": {Column: "s.name", Kind: KindText, Lookups: TextLookups},
		"type": {Column: "s.type", Kind: KindText, Lookups: TextLookups},
	},
	Order: "s.slug COLLATE BINARY ASC, s.id ASC",
	Orderable: map[string]string{
		"id":   "s.id",
		"slug": "s.slug COLLATE BINARY",
		"name": "s.name COLLATE BINARY",
	},
}

// SetSchema filters reservable sets.
var SetSchema = Schema{
	Name: "reservable_set",
	Fields: map[string]Field{
		"id":   {Column: "t.id", Kind: KindNumber, Lookups: NumberLookups},
		"slug": {Column: "t.slug", Kind: KindText, Lookups: SlugLookups},
		"name": {Column: "t.name", Kind: KindText, Lookups: TextLookups},
	},
	Order: "t.slug COLLATE BINARY ASC, t.id ASC",
	Orderable: map[string]string{
		"id":   "t.id",
		"slug": "t.slug COLLATE BINARY",
		"name": "t.name COLLATE BINARY",
	},
}
