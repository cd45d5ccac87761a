package hl7v2

import (
	"fmt"
	"time"
)

// AckCode is the MSA-1 acknowledgment code.
type AckCode string

const (
	AckAccept AckCode = "AA"
	AckError  AckCode = "AE"
	AckReject AckCode = "AR"
)

// ParseAckCode accepts the original and enhanced acknowledgment codes.
func ParseAckCode(s string) (AckCode, error) {
	switch s {
	case "AA", "AE", "AR", "CA", "CE", "CR":
		return AckCode(s), nil
	}
	return "", fmt.Errorf("hl7v2: unknown acknowledgment code %q", s)
}

// GenerateACK builds an MSH/MSA acknowledgment for incoming. Sending and
// receiving application and facility are swapped, the trigger event and
// version are echoed, and MSA-2 references the incoming control ID.
func GenerateACK(incoming *Message, code AckCode, controlID string) (*Message, error) {
	return generateACK(incoming, code, controlID, time.Now().UTC())
}

func generateACK(incoming *Message, code AckCode, controlID string, now time.Time) (*Message, error) {
	d := incoming.Delimiters()
	in := incoming.Header()

	// MSH-3 .. MSH-12
	ack, err := NewMessage(d, 10)
	if err != nil {
		return nil, err
	}
	msh := ack.Segment(0)

	set := func(position int, value string) {
		_ = msh.Field(position).Field(0).SetData(value)
	}
	set(3, in.ReceivingApp)
	set(4, in.ReceivingFacility)
	set(5, in.SendingApp)
	set(6, in.SendingFacility)
	set(7, FormatTimestamp(now, PrecisionSeconds))
	set(10, controlID)
	processing := in.ProcessingID
	if processing == "" {
		processing = "P"
	}
	set(11, processing)
	set(12, in.Version)

	msgType := NewCompositeField(d, "ACK")
	if in.TriggerEvent != "" {
		msgType = NewCompositeField(d, "ACK", in.TriggerEvent)
	}
	if _, err := msh.Field(9).Replace(0, msgType); err != nil {
		return nil, err
	}

	msa, err := NewSegment(d, "MSA", 2)
	if err != nil {
		return nil, err
	}
	_ = msa.Field(1).Field(0).SetData(string(code))
	_ = msa.Field(2).Field(0).SetData(in.ControlID)
	if err := ack.Append(msa); err != nil {
		return nil, err
	}
	return ack, nil
}
