/*
@Description: symbol adapter: variable-length datagrams <-> fixed-size RS symbols
@Language: Go 1.23.4
*/

package fec

import "encoding/binary"

// DataToSymbol allocates a zero-filled symbol of symbolSize bytes, writes the
// true length of data as a 2-byte big-endian prefix, then copies as much of
// data as fits. Truncation only happens if the caller handed in more than
// symbolSize-DataSymbolHdrSize bytes, which FecEncoder.EncodeData rejects
// before reaching here.
func DataToSymbol(data []byte, symbolSize int) []byte {
	symbol := make([]byte, symbolSize)
	binary.BigEndian.PutUint16(symbol, uint16(len(data)))
	n := copy(symbol[DataSymbolHdrSize:], data)
	_ = n
	return symbol
}

// SymbolToData reads the 2-byte length prefix from symbol and copies up to
// min(declared length, len(out)) bytes into out, returning the number copied.
func SymbolToData(symbol []byte, out []byte) (int, error) {
	if len(symbol) < DataSymbolHdrSize {
		return 0, ErrShortSymbol
	}
	declared := int(binary.BigEndian.Uint16(symbol))
	body := symbol[DataSymbolHdrSize:]
	if declared > len(body) {
		declared = len(body)
	}
	n := copy(out, body[:declared])
	return n, nil
}
