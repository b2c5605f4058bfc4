package core

// ADCChannel selects one of the station's analog inputs.
type ADCChannel uint8

const (
	ADCTemperature     ADCChannel = iota // iron sensor, after the analog front end
	ADCRoomTemperature                   // on-board room temperature sensor
	ADCHolder                            // iron holder sense voltage
	ADCVoltage                           // heater voltage, auto-sampled
	ADCCurrent                           // heater current, auto-sampled
)

// ADCDriver is the abstract ADC interface that the cycle state machine uses.
// All calls are made from the cycle interrupt and must not block.
type ADCDriver interface {
	// StartConversion starts a one-shot conversion of samples samples on ch.
	// Completion is signalled by the target calling Controller.OnADCComplete.
	StartConversion(ch ADCChannel, samples uint8)

	// Result returns the sum of the samples of the last one-shot conversion.
	// A single sample is 10 bits; a 4-sample sum is at most 4092.
	Result() uint16

	// StartManualVRef switches the ADC reference to manual mode and stops
	// the heater voltage/current auto-sampling.
	StartManualVRef()

	// StartAutoVRef starts auto-sampling heater voltage and current into the
	// acquisition buffer. heaterOff selects the reference used when the
	// heater will not be driven this half cycle.
	StartAutoVRef(heaterOff bool)

	// StopADC halts every conversion.
	StopADC()
}

// AnalogFrontEnd drives the sensor amplifier: input mux, polarity, the
// compensation band switches and the heater channel selector.
type AnalogFrontEnd interface {
	SelectInputs(p, n uint8)
	SetInvert(invert bool)
	SetCompensationBand(a, b bool)
	SetHeaterChannel(ch uint8)
}
