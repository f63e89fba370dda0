// Package pack implements the fixed-width binary records that back the
// Trip and StopTimeBucket namespaces. A transit network's stop_times table
// can run 5-20M rows; holding each row as a Go struct with string/int
// fields and map overhead would dominate memory, so both record types are
// packed into 16-byte arrays, mirroring the original implementation's
// struct.pack('12s4s', ...) / struct.pack('12s4b', ...) layout.
package pack

import "fmt"

const (
	tripRouteIDWidth   = 12
	tripServiceIDWidth = 4
	stopTimeIDWidth    = 12
)

// PackedTrip is the 16-byte encoding of trip_id -> (route_id, service_id).
type PackedTrip [tripRouteIDWidth + tripServiceIDWidth]byte

// PackTrip encodes routeID and serviceID into a PackedTrip. Both must fit
// within their field widths once UTF-8 encoded.
func PackTrip(routeID, serviceID string) (PackedTrip, error) {
	var p PackedTrip
	if err := putFixed(p[0:tripRouteIDWidth], routeID); err != nil {
		return p, fmt.Errorf("route_id: %w", err)
	}
	if err := putFixed(p[tripRouteIDWidth:], serviceID); err != nil {
		return p, fmt.Errorf("service_id: %w", err)
	}
	return p, nil
}

// UnpackTrip recovers (route_id, service_id), trimming the zero padding.
func UnpackTrip(p PackedTrip) (routeID, serviceID string) {
	return getFixed(p[0:tripRouteIDWidth]), getFixed(p[tripRouteIDWidth:])
}

// PackedStopTime is the 16-byte encoding of a single stop_times.txt row,
// as stored in a StopTimeBucket. arrival_h is stored pre-modulo so that
// GTFS's post-midnight convention (e.g. "25:10:00") survives the round
// trip; the resolver takes arrival_h mod 24 only to pick a bucket.
type PackedStopTime [stopTimeIDWidth + 4]byte

// PackStopTime encodes one stop_times row. arrivalH may exceed 23.
func PackStopTime(tripID string, arrivalH, arrivalM, arrivalS, stopSequence int8) (PackedStopTime, error) {
	var p PackedStopTime
	if err := putFixed(p[0:stopTimeIDWidth], tripID); err != nil {
		return p, fmt.Errorf("trip_id: %w", err)
	}
	p[stopTimeIDWidth] = byte(arrivalH)
	p[stopTimeIDWidth+1] = byte(arrivalM)
	p[stopTimeIDWidth+2] = byte(arrivalS)
	p[stopTimeIDWidth+3] = byte(stopSequence)
	return p, nil
}

// UnpackStopTime recovers the fields packed by PackStopTime.
func UnpackStopTime(p PackedStopTime) (tripID string, arrivalH, arrivalM, arrivalS, stopSequence int8) {
	tripID = getFixed(p[0:stopTimeIDWidth])
	arrivalH = int8(p[stopTimeIDWidth])
	arrivalM = int8(p[stopTimeIDWidth+1])
	arrivalS = int8(p[stopTimeIDWidth+2])
	stopSequence = int8(p[stopTimeIDWidth+3])
	return
}

// putFixed zero-pads s (UTF-8 encoded) into dst, which must be exactly
// len(s.encode) or more. Returns an error if s does not fit.
func putFixed(dst []byte, s string) error {
	b := []byte(s)
	if len(b) > len(dst) {
		return fmt.Errorf("%q is %d bytes, field width is %d", s, len(b), len(dst))
	}
	n := copy(dst, b)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// getFixed decodes a zero-padded UTF-8 field, trimming trailing NULs. A
// NUL cannot otherwise appear in legal GTFS identifiers, so truncating at
// the first one is equivalent to trimming them all from the end.
func getFixed(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
