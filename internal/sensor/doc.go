// Package sensor generates synthetic machine readings.
//
// Generator.Generate(t) models machine load with a diurnal curve peaking in
// mid-afternoon and adds bounded uniform noise per channel. The noise source
// is injectable so tests can pin exact values.
package sensor
