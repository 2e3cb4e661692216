package dateparser

// zoneAbbreviations maps time zone abbreviations to offsets in seconds.
// See https://en.wikipedia.org/wiki/List_of_time_zone_abbreviations
var zoneAbbreviations = map[string]int{
	"GMT": offset(0, 0), "UTC": offset(0, 0),
	"PDT": offset(-7, 0), "PST": offset(-8, 0),
	"EST": offset(-5, 0), "EDT": offset(-4, 0),
	"MDT": offset(-6, 0), "MST": offset(-7, 0),
	"CST": offset(-6, 0), "CDT": offset(-5, 0),
	"ACT": offset(-8, 0), "AFT": offset(4, 30), "AMT": offset(4, 0), "ART": offset(-3, 0),
	"AST": offset(3, 0), "AZT": offset(4, 0), "BIT": offset(-12, 0), "BDT": offset(8, 0),
	"ACST": offset(9, 30), "AEST": offset(10, 0), "AKST": offset(-9, 0), "AMST": offset(5, 0),
	"AWST": offset(8, 0), "AZOST": offset(-1, 0), "BIOT": offset(6, 0), "BRT": offset(-3, 0),
	"BST": offset(6, 0), "BTT": offset(6, 0), "CAT": offset(2, 0), "CCT": offset(6, 30),
	"CET": offset(1, 0), "CEST": offset(2, 0), "CHAST": offset(12, 45), "ChST": offset(10, 0),
	"CIST": offset(-8, 0), "CKT": offset(-10, 0), "CLT": offset(-4, 0), "CLST": offset(-3, 0),
	"COT": offset(-5, 0), "COST": offset(-4, 0), "CVT": offset(-1, 0), "CXT": offset(7, 0),
	"EAST": offset(-6, 0), "EAT": offset(3, 0), "ECT": offset(-4, 0), "EEST": offset(3, 0),
	"EET": offset(2, 0), "FJT": offset(12, 0), "FKST": offset(-4, 0), "GALT": offset(-6, 0),
	"GET": offset(4, 0), "GFT": offset(-3, 0), "GILT": offset(7, 0), "GIT": offset(-9, 0),
	"GST": offset(-2, 0), "GYT": offset(-4, 0), "HAST": offset(-10, 0), "HKT": offset(8, 0),
	"HMT": offset(5, 0), "IRKT": offset(8, 0), "IRST": offset(3, 30), "IST": offset(2, 0),
	"JST": offset(9, 0), "KRAT": offset(7, 0), "KST": offset(9, 0), "LHST": offset(10, 30),
	"LINT": offset(14, 0), "MAGT": offset(11, 0), "MIT": offset(-9, 30), "MSK": offset(3, 0),
	"MUT": offset(4, 0), "NDT": offset(-2, 30), "NFT": offset(11, 30), "NPT": offset(5, 45),
	"NT": offset(-3, 30), "OMST": offset(6, 0), "PETT": offset(12, 0), "PHOT": offset(13, 0),
	"PKT": offset(5, 0), "RET": offset(4, 0), "SAMT": offset(4, 0), "SAST": offset(2, 0),
	"SBT": offset(11, 0), "SCT": offset(4, 0), "SLT": offset(5, 30), "SST": offset(8, 0),
	"TAHT": offset(-10, 0), "THA": offset(7, 0), "UYT": offset(-3, 0), "UYST": offset(-2, 0),
	"VET": offset(-4, 30), "VLAT": offset(10, 0), "WAT": offset(1, 0), "WET": offset(0, 0),
	"WEST": offset(1, 0), "YAKT": offset(9, 0), "YEKT": offset(5, 0),
}

// offset returns seconds for hours and minutes, minutes follow the sign of hours
func offset(hours, minutes int) int {
	if hours < 0 {
		return hours*60*60 - minutes*60
	}
	return hours*60*60 + minutes*60
}
