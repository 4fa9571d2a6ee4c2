package vector

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// PointID is a storage identifier in one of the two forms vector databases
// accept: an unsigned integer or a UUID in canonical string form.
type PointID struct {
	uuid    uuid.UUID
	num     uint64
	numeric bool
}

func NewPointID() PointID {
	return PointID{uuid: uuid.New()}
}

func NumericPointID(n uint64) PointID {
	return PointID{num: n, numeric: true}
}

// ParsePointID accepts a decimal unsigned integer or any UUID spelling
// (braced, urn-prefixed, upper case) and normalizes it.
func ParsePointID(s string) (PointID, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return NumericPointID(n), nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return PointID{}, fmt.Errorf("%w: %q", ErrInvalidPointID, s)
	}

	return PointID{uuid: id}, nil
}

func (id PointID) IsNumeric() bool {
	return id.numeric
}

func (id PointID) String() string {
	if id.numeric {
		return strconv.FormatUint(id.num, 10)
	}

	return id.uuid.String()
}

func (id PointID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(strconv.FormatUint(id.num, 10)), nil
	}

	return json.Marshal(id.uuid.String())
}

func (id *PointID) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = NumericPointID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPointID, string(data))
	}

	parsed, err := ParsePointID(s)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}
