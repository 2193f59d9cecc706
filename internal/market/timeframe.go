package market

// Timeframe identifies a candle interval in Binance notation.
type Timeframe string

const (
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
	Timeframe1w  Timeframe = "1w"
)

// ltfToHTF maps a lower timeframe to the higher timeframe used for
// multi-timeframe confirmation.
var ltfToHTF = map[Timeframe]Timeframe{
	Timeframe15m: Timeframe1h,
	Timeframe30m: Timeframe4h,
	Timeframe1h:  Timeframe1d,
	Timeframe4h:  Timeframe1d,
	Timeframe1d:  Timeframe1w,
}

// confirmationTF maps a lower timeframe to the finer series used to confirm
// exact entry/exit fills. Timeframes without an entry mapping confirm on the
// lower timeframe itself.
var confirmationTF = map[Timeframe]Timeframe{
	Timeframe1d: Timeframe1h,
}

// HigherTimeframe returns the confirmation HTF for a lower timeframe,
// defaulting to 1d.
func HigherTimeframe(ltf Timeframe) Timeframe {
	if htf, ok := ltfToHTF[ltf]; ok {
		return htf
	}
	return Timeframe1d
}

// ConfirmationTimeframe returns the fill-confirmation timeframe for a lower
// timeframe. When no finer series is mapped, the lower timeframe is its own
// confirmation series.
func ConfirmationTimeframe(ltf Timeframe) Timeframe {
	if tf, ok := confirmationTF[ltf]; ok {
		return tf
	}
	return ltf
}
