package protocol

// CRC16 computes the CCITT checksum carried in every message block trailer
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		d := b ^ uint8(crc)
		d ^= d << 4
		wide := uint16(d)
		crc = (wide<<8 | crc>>8) ^ uint16(d>>4) ^ (wide << 3)
	}
	return crc
}

// appendCRC writes the checksum big-endian followed by the sync byte
func appendCRC(dst []byte, crc uint16) []byte {
	return append(dst, byte(crc>>8), byte(crc), MessageValueSync)
}
