package log

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// ErrMalformedEvent is returned when a decoded record is not a control event.
var ErrMalformedEvent = errors.New("malformed control event")

// Events are flat maps of small payloads; anything deeper or wider is a
// corrupt or foreign stream.
const (
	maxEventNesting = 4
	maxEventPairs   = 32
)

var eventEncMode, eventDecMode = eventModes()

// eventModes builds the .clog codec: core deterministic encoding with
// nanosecond timestamps, and a strict decoder that rejects duplicate keys.
func eventModes() (cbor.EncMode, cbor.DecMode) {
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano
	encOpts.NilContainers = cbor.NilContainerAsNull
	enc, err := encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR encoder mode: %v", err))
	}

	dec, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: maxEventNesting,
		MaxMapPairs:     maxEventPairs,
		IndefLength:     cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR decoder mode: %v", err))
	}
	return enc, dec
}

// EncodeEvent encodes an Event to CBOR bytes.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEncMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, validateEvent(event)
}

// NewEncoder creates a CBOR encoder for events that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return eventEncMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder for events that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return eventDecMode.NewDecoder(r)
}

// decodeNext reads one event from a stream.
func decodeNext(dec *cbor.Decoder) (Event, error) {
	var event Event
	if err := dec.Decode(&event); err != nil {
		return Event{}, err
	}
	return event, validateEvent(event)
}

func validateEvent(event Event) error {
	if event.Layer > LayerBridge {
		return fmt.Errorf("%w: layer %d", ErrMalformedEvent, event.Layer)
	}
	if event.Category > CategoryError {
		return fmt.Errorf("%w: category %d", ErrMalformedEvent, event.Category)
	}
	return nil
}
