// Package formulation turns a parsed case file into an explicit linear
// model of one dispatch interval: index sets, bound parameters, variables,
// constraints and the objective. Construction is purely functional - the
// same case always yields the same model, so intervals can be formulated
// concurrently.
package formulation

import "errors"

// Trade types as they appear in case documents. ENOF and LDOF are the energy
// offers; the remaining eight are frequency control ancillary services.
const (
	EnergyGeneration = "ENOF"
	EnergyLoad       = "LDOF"
	RaiseRegulation  = "R5RE"
	Raise6Second     = "R6SE"
	Raise60Second    = "R60S"
	Raise5Minute     = "R5MI"
	LowerRegulation  = "L5RE"
	Lower6Second     = "L6SE"
	Lower60Second    = "L60S"
	Lower5Minute     = "L5MI"
)

// Trader types.
const (
	TraderGenerator      = "GENERATOR"
	TraderLoad           = "LOAD"
	TraderNormallyOnLoad = "NORMALLY_ON_LOAD"
)

// FCASTypes lists the eight frequency control services in reporting order.
var FCASTypes = []string{
	Raise6Second, Raise60Second, Raise5Minute, RaiseRegulation,
	Lower6Second, Lower60Second, Lower5Minute, LowerRegulation,
}

// ErrTraderType marks a trader type outside the three recognised kinds.
var ErrTraderType = errors.New("unhandled trader type")

// IsEnergy reports whether the trade type is an energy offer.
func IsEnergy(tradeType string) bool {
	return tradeType == EnergyGeneration || tradeType == EnergyLoad
}

// IsFCAS reports whether the trade type is a frequency control service.
func IsFCAS(tradeType string) bool {
	for _, t := range FCASTypes {
		if tradeType == t {
			return true
		}
	}
	return false
}

// IsRegulating reports whether the trade type is a regulating FCAS service.
func IsRegulating(tradeType string) bool {
	return tradeType == RaiseRegulation || tradeType == LowerRegulation
}

// IsContingency reports whether the trade type is a contingency FCAS service.
func IsContingency(tradeType string) bool {
	return IsFCAS(tradeType) && !IsRegulating(tradeType)
}

// EnergyOfferType returns the energy trade type a trader of the given kind
// submits: generators offer ENOF, loads bid LDOF.
func EnergyOfferType(traderType string) (string, error) {
	switch traderType {
	case TraderGenerator:
		return EnergyGeneration, nil
	case TraderLoad, TraderNormallyOnLoad:
		return EnergyLoad, nil
	default:
		return "", ErrTraderType
	}
}

// OfferID identifies one trade type offered by a trader.
type OfferID struct {
	TraderID  string
	TradeType string
}

// BandID identifies a single price band of a trader offer. Bands are
// numbered 1 through 10.
type BandID struct {
	OfferID
	Band int
}

// MNSPOfferID identifies the offer a market interconnector makes at one
// region end.
type MNSPOfferID struct {
	InterconnectorID string
	RegionID         string
}

// MNSPBandID identifies a single price band of an MNSP region offer.
type MNSPBandID struct {
	MNSPOfferID
	Band int
}

// RegionOfferID aggregates one trade type over a region. Generic constraints
// reference these aggregates on their LHS.
type RegionOfferID struct {
	RegionID  string
	TradeType string
}

// LossIndex addresses one breakpoint or one interval of an interconnector
// loss model.
type LossIndex struct {
	InterconnectorID string
	Index            int
}

// TiedPair is an ordered pair of price-tied energy offer bands. The pair is
// stored with the lexically smaller trader first.
type TiedPair struct {
	First  BandID
	Second BandID
}
