package core

// OutputDriver covers the digital lines the control core owns.
type OutputDriver interface {
	// SetHeater switches the heater triac/MOSFET gate.
	SetHeater(on bool)

	// SetDisplayPower switches the display supply. Dropped on power loss so
	// the remaining bulk capacitance is left to the MCU.
	SetDisplayPower(on bool)

	// HolderSwitch reads the digital holder switch on boards that have one.
	HolderSwitch() bool
}
