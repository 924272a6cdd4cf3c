package reports

import "encoding/json"

// rawJSON lets concurrent singleflight callers decode one shared payload into their own values.
type rawJSON []byte

func (r *rawJSON) UnmarshalJSON(b []byte) error {
	*r = append((*r)[:0], b...)
	return nil
}

func (r rawJSON) decode(dest any) error {
	return json.Unmarshal(r, dest)
}
