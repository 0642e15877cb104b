package accutrade

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tradein/backend/internal/domain/valuation"
)

// errUnexpectedShape marks a payload matching none of the declared variants
var errUnexpectedShape = errors.New("unexpected payload shape")

// errMalformedPayload marks a body that is not valid JSON
var errMalformedPayload = errors.New("malformed JSON payload")

// ---------------------------------------------------------------------------
// Scalar helpers
// ---------------------------------------------------------------------------

// flexString accepts a JSON string or number
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexNumber accepts a JSON number or numeric string; null and "" stay absent
type flexNumber struct {
	decimal.NullDecimal
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		n.NullDecimal = decimal.NullDecimal{}
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
		if raw == "" {
			n.NullDecimal = decimal.NullDecimal{}
			return nil
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	n.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

func (n flexNumber) intValue() int {
	if !n.Valid {
		return 0
	}
	return int(n.Decimal.IntPart())
}

// firstValid returns the first present number
func firstValid(values ...flexNumber) decimal.NullDecimal {
	for _, v := range values {
		if v.Valid {
			return v.NullDecimal
		}
	}
	return decimal.NullDecimal{}
}

func firstNonEmpty(values ...flexString) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Vehicle payloads
// ---------------------------------------------------------------------------

// vehiclePayload declares every field-name variant seen on vehicle and VIN responses
type vehiclePayload struct {
	Gid         flexString `json:"gid"`
	ExtendedGid flexString `json:"extendedGid"`
	Year        flexNumber `json:"year"`
	Make        flexString `json:"make"`
	Model       flexString `json:"model"`
	WebModel    flexString `json:"webmodel"`
	Style       flexString `json:"style"`
	Trim        flexString `json:"trim"`
	Series      flexString `json:"series"`

	// base price variants, in precedence order
	VehicleBasePrice   flexNumber `json:"vehicleBasePrice"`
	BasePrice          flexNumber `json:"basePrice"`
	BaseProjectedPrice flexNumber `json:"baseProjectedPrice"`

	// market value variants, in precedence order
	Market                   flexNumber `json:"market"`
	MarketValue              flexNumber `json:"marketValue"`
	BaseProjectedMarketPrice flexNumber `json:"baseProjectedMarketPrice"`

	Trade flexNumber `json:"trade"`

	// average mileage variants, in precedence order
	AvgMileage flexNumber `json:"avgMileage"`
	BaseMiles  flexNumber `json:"basemiles"`
}

// toVehicleRecord is the single mapping from provider vehicle fields onto the canonical record
func toVehicleRecord(p vehiclePayload, raw json.RawMessage) *valuation.VehicleRecord {
	return &valuation.VehicleRecord{
		Gid:            firstNonEmpty(p.Gid),
		Year:           p.Year.intValue(),
		Make:           firstNonEmpty(p.Make),
		Model:          firstNonEmpty(p.Model, p.WebModel),
		Style:          styleOf(p),
		BasePrice:      firstValid(p.VehicleBasePrice, p.BasePrice, p.BaseProjectedPrice, p.Trade),
		MarketValue:    firstValid(p.Market, p.MarketValue, p.BaseProjectedMarketPrice),
		TradeInValue:   firstValid(p.Trade),
		AverageMileage: firstValid(p.AvgMileage, p.BaseMiles),
		Raw:            raw,
	}
}

func styleOf(p vehiclePayload) string {
	if s := firstNonEmpty(p.Style, p.Trim, p.Series); s != "" {
		return s
	}
	return strings.TrimSpace(string(p.WebModel) + " " + string(p.ExtendedGid))
}

func toCandidate(p vehiclePayload) valuation.VinCandidate {
	return valuation.VinCandidate{
		Gid:   firstNonEmpty(p.Gid),
		Year:  p.Year.intValue(),
		Make:  firstNonEmpty(p.Make),
		Model: firstNonEmpty(p.Model, p.WebModel),
		Style: styleOf(p),
	}
}

// vehicleEnvelope covers responses that wrap the vehicle list in an object
type vehicleEnvelope struct {
	Vehicles json.RawMessage `json:"vehicles"`
	Results  json.RawMessage `json:"results"`
	Data     json.RawMessage `json:"data"`
	Vehicle  json.RawMessage `json:"vehicle"`
}

// parseVehicleList accepts a bare array, a wrapped array or a single vehicle object
func parseVehicleList(body []byte) ([]vehiclePayload, error) {
	switch payloadKind(body) {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, err
		}
		out := make([]vehiclePayload, 0, len(list))
		for _, item := range list {
			if payloadKind(item) != '{' {
				continue
			}
			var p vehiclePayload
			if err := json.Unmarshal(item, &p); err != nil {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	case '{':
		var env vehicleEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		for _, inner := range []json.RawMessage{env.Vehicles, env.Results, env.Data, env.Vehicle} {
			if k := payloadKind(inner); k == '[' || k == '{' {
				return parseVehicleList(inner)
			}
		}
		var p vehiclePayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return []vehiclePayload{p}, nil
	default:
		return nil, errUnexpectedShape
	}
}

// parseVehicle accepts a vehicle object, optionally wrapped or as a one-element array
func parseVehicle(body []byte) (vehiclePayload, error) {
	list, err := parseVehicleList(body)
	if err != nil {
		return vehiclePayload{}, err
	}
	if len(list) == 0 {
		return vehiclePayload{}, errUnexpectedShape
	}
	return list[0], nil
}

// ---------------------------------------------------------------------------
// Catalog payloads
// ---------------------------------------------------------------------------

// catalogEntry declares the catalog entry variants: a bare string or an object
// keyed by make, name, model, style or webmodel/extendedGid.
type catalogEntry struct {
	text        string
	Make        flexString `json:"make"`
	Name        flexString `json:"name"`
	Model       flexString `json:"model"`
	Style       flexString `json:"style"`
	WebModel    flexString `json:"webmodel"`
	ExtendedGid flexString `json:"extendedGid"`
	Gid         flexString `json:"gid"`
}

func (e *catalogEntry) UnmarshalJSON(data []byte) error {
	switch payloadKind(data) {
	case '"':
		return json.Unmarshal(data, &e.text)
	case '{':
		type plain catalogEntry
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*e = catalogEntry(p)
		return nil
	case '0':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		e.text = n.String()
		return nil
	default:
		// null, booleans and nested arrays map to nothing and are filtered out
		return nil
	}
}

// parseCatalog decodes a top-level array of catalog entries.
// ok is false when the payload is well-formed JSON but not an array; a body
// that is not JSON at all is an error.
func parseCatalog(body []byte) (entries []catalogEntry, ok bool, err error) {
	if !json.Valid(body) {
		return nil, false, errMalformedPayload
	}
	if payloadKind(body) != '[' {
		return nil, false, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, false, err
	}
	entries = make([]catalogEntry, 0, len(list))
	for _, item := range list {
		var e catalogEntry
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, true, nil
}

func toMakeOption(e catalogEntry) (valuation.CatalogOption, bool) {
	label := strings.TrimSpace(e.text)
	if label == "" {
		label = firstNonEmpty(e.Make, e.Name)
	}
	if label == "" {
		return valuation.CatalogOption{}, false
	}
	return valuation.CatalogOption{Value: strings.ToLower(label), Label: label}, true
}

func toModelName(e catalogEntry) (string, bool) {
	name := strings.TrimSpace(e.text)
	if name == "" {
		name = firstNonEmpty(e.Name, e.Model)
	}
	return name, name != ""
}

func toTrimOption(e catalogEntry) (valuation.TrimOption, bool) {
	if text := strings.TrimSpace(e.text); text != "" {
		return valuation.TrimOption{Trim: text}, true
	}
	trim := firstNonEmpty(e.Style)
	if trim == "" {
		trim = strings.TrimSpace(string(e.WebModel) + " " + string(e.ExtendedGid))
	}
	if trim == "" {
		return valuation.TrimOption{}, false
	}
	return valuation.TrimOption{Trim: trim, Gid: firstNonEmpty(e.Gid)}, true
}

// payloadKind returns the first significant byte of a JSON value, with every
// number reported as '0'. It returns 0 for empty input.
func payloadKind(data []byte) byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	c := data[0]
	if c == '-' || (c >= '0' && c <= '9') {
		return '0'
	}
	return c
}

// yearPath formats a year for a provider URL
func yearPath(year int) string {
	return strconv.Itoa(year)
}
