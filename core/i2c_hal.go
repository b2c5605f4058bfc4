package core

// I2CAddress is a 7-bit I2C device address.
type I2CAddress uint8

// I2CPrimitives are the single-byte bus operations the transaction engine
// sequences, one per Service call. None of them may block.
type I2CPrimitives interface {
	Start()
	Stop()
	SendAddress(addr I2CAddress, read bool)
	SendByte(b byte)
	ReceiverEnable()
	ReceiverDisable()
	ReceiveByte() byte
	Ack()

	// IsAck reports whether the last address or data byte was acknowledged.
	IsAck() bool

	// WakeUp raises the low priority bus interrupt so Service gets called.
	WakeUp()
}
