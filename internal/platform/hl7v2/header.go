package hl7v2

import (
	"time"
)

// Header summarises the MSH segment.
type Header struct {
	FieldSeparator     string    `json:"fieldSeparator"`
	EncodingCharacters string    `json:"encodingCharacters"`
	SendingApp         string    `json:"sendingApp"`        // MSH-3
	SendingFacility    string    `json:"sendingFacility"`   // MSH-4
	ReceivingApp       string    `json:"receivingApp"`      // MSH-5
	ReceivingFacility  string    `json:"receivingFacility"` // MSH-6
	RawTimestamp       string    `json:"rawTimestamp"`      // MSH-7
	Timestamp          time.Time `json:"timestamp"`         // zero when MSH-7 does not parse
	MessageType        string    `json:"messageType"`       // MSH-9.1
	TriggerEvent       string    `json:"triggerEvent"`      // MSH-9.2
	MessageStructure   string    `json:"messageStructure"`  // MSH-9.3
	ControlID          string    `json:"controlId"`         // MSH-10
	ProcessingID       string    `json:"processingId"`      // MSH-11
	Version            string    `json:"version"`           // MSH-12
	CharacterSet       string    `json:"characterSet"`      // MSH-18
}

var (
	locSeparator    = MustParseLocation("MSH-1")
	locEncoding     = MustParseLocation("MSH-2")
	locSendingApp   = MustParseLocation("MSH-3.1")
	locSendingFac   = MustParseLocation("MSH-4.1")
	locReceivingApp = MustParseLocation("MSH-5.1")
	locReceivingFac = MustParseLocation("MSH-6.1")
	locTimestamp    = MustParseLocation("MSH-7.1")
	locMessageType  = MustParseLocation("MSH-9.1")
	locTrigger      = MustParseLocation("MSH-9.2")
	locStructure    = MustParseLocation("MSH-9.3")
	locControlID    = MustParseLocation("MSH-10")
	locProcessingID = MustParseLocation("MSH-11.1")
	locVersion      = MustParseLocation("MSH-12.1")
	locCharset      = MustParseLocation("MSH-18")
)

// Header reads the commonly used MSH fields. Missing fields are empty.
func (m *Message) Header() Header {
	h := Header{
		FieldSeparator:     m.GetAt(locSeparator).Data(),
		EncodingCharacters: m.GetAt(locEncoding).Data(),
		SendingApp:         m.GetAt(locSendingApp).Data(),
		SendingFacility:    m.GetAt(locSendingFac).Data(),
		ReceivingApp:       m.GetAt(locReceivingApp).Data(),
		ReceivingFacility:  m.GetAt(locReceivingFac).Data(),
		RawTimestamp:       m.GetAt(locTimestamp).Data(),
		MessageType:        m.GetAt(locMessageType).Data(),
		TriggerEvent:       m.GetAt(locTrigger).Data(),
		MessageStructure:   m.GetAt(locStructure).Data(),
		ControlID:          m.GetAt(locControlID).Data(),
		ProcessingID:       m.GetAt(locProcessingID).Data(),
		Version:            m.GetAt(locVersion).Data(),
		CharacterSet:       m.GetAt(locCharset).Data(),
	}
	if h.RawTimestamp != "" {
		if t, err := ParseTimestamp(h.RawTimestamp); err == nil {
			h.Timestamp = t
		}
	}
	return h
}

// Type returns MSH-9 as "TYPE^EVENT" using the message's component
// separator, or just the type when there is no trigger event.
func (h Header) Type(d Delimiters) string {
	if h.TriggerEvent == "" {
		return h.MessageType
	}
	return h.MessageType + string(d.Component()) + h.TriggerEvent
}
