package types

import "bytes"
import "encoding/gob"

// gobValue is the exported shadow struct used to round-trip a Value
// through encoding/gob, which cannot see unexported fields directly.
type gobValue struct {
	Null bool
	Typ  DataType
	B    bool
	I    int64
	F    float64
	S    string
}

func (v Value) GobEncode() ([]byte, error) {
	gv := gobValue{Null: v.null, Typ: v.typ, B: v.b, I: v.i, F: v.f, S: v.s}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) GobDecode(data []byte) error {
	var gv gobValue
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&gv); err != nil {
		return err
	}
	v.null, v.typ, v.b, v.i, v.f, v.s = gv.Null, gv.Typ, gv.B, gv.I, gv.F, gv.S
	return nil
}
