// Package pdg maps Particle Data Group codes to the small integer classes
// used on histogram axes.
package pdg

const (
	Photon   int32 = 22
	Electron int32 = 11
	Muon     int32 = 13
	Neutron  int32 = 2112
	Proton   int32 = 2212
)

// typeIDs numbers the particle species seen in beam-induced background.
var typeIDs = map[int32]int{
	2212:       1,
	2112:       2,
	211:        3,
	-211:       4,
	321:        5,
	-321:       6,
	-13:        7,
	13:         8,
	22:         9,
	11:         10,
	-11:        11,
	-2212:      12,
	111:        13,
	1000010020: 14, // deuteron
	1000010030: 15, // triton
	1000020030: 16, // helium-3
	1000020040: 17, // alpha
	14:         18,
	-14:        19,
	12:         20,
	-12:        21,
	130:        22,
	310:        23,
	311:        24,
	-311:       25,
	3122:       26,
	-3122:      27,
	3222:       28,
	3212:       29,
	3112:       30,
	-2112:      31,
	3322:       32,
	3312:       33,
	3334:       34,
	5112:       35,
	5212:       36,
	5222:       37,
	-3322:      38,
	-5132:      39,
	-5332:      40,
}

// NumTypes is the number of type bins including 0 for unlisted species.
const NumTypes = 41

// ToType returns the species number of code, or 0 when it is not listed.
func ToType(code int32) int {
	return typeIDs[code]
}

var compact = map[int32]int32{
	2112:  5,
	2212:  4,
	-2212: -4,
	321:   3,
	-321:  -3,
	-211:  -2,
	211:   2,
	-111:  -1,
	111:   1,
}

// Compact folds hadron codes into a narrow signed range so they share an
// axis with leptons and photons. Other codes are returned unchanged.
func Compact(code int32) int32 {
	if c, ok := compact[code]; ok {
		return c
	}
	return code
}
