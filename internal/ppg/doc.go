// Package ppg estimates heart rate from facial video without a contact
// sensor.
//
// Blood-volume pulses modulate how much light skin reflects, so the mean
// brightness of a facial region carries a weak periodic component at the
// pulse frequency (photoplethysmography). The detector accumulates one
// scalar per frame into a bounded buffer, then recovers the dominant
// frequency with an FFT, falling back to autocorrelation and finally to a
// statistical estimate when the spectrum is inconclusive.
//
// A Detector is not safe for concurrent use: it is owned by exactly one
// stream's frame loop and invoked serially from it.
package ppg
