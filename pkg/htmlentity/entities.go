package htmlentity

var namedEntities = map[string]string{
	"AElig": "Æ", "Aacute": "Á", "Acirc": "Â", "Agrave": "À", "Aring": "Å", "Atilde": "Ã", "Auml": "Ä",
	"Ccedil": "Ç", "Dstrok": "Ð", "ETH": "Ð", "Eacute": "É", "Ecirc": "Ê", "Egrave": "È", "Euml": "Ë",
	"Iacute": "Í", "Icirc": "Î", "Igrave": "Ì", "Iuml": "Ï", "Ntilde": "Ñ", "Oacute": "Ó", "Ocirc": "Ô",
	"Ograve": "Ò", "Oslash": "Ø", "Otilde": "Õ", "Ouml": "Ö", "Pi": "Π", "THORN": "Þ", "Uacute": "Ú",
	"Ucirc": "Û", "Ugrave": "Ù", "Uuml": "Ü", "Yacute": "Ý",
	"aacute": "á", "acirc": "â", "acute": "´", "aelig": "æ", "agrave": "à", "amp": "&", "apos": "'",
	"aring": "å", "atilde": "ã", "auml": "ä", "brkbar": "¦", "brvbar": "¦", "ccedil": "ç", "cedil": "¸",
	"cent": "¢", "copy": "©", "curren": "¤", "deg": "°", "die": "¨", "divide": "÷", "eacute": "é",
	"ecirc": "ê", "egrave": "è", "eth": "ð", "euml": "ë", "euro": "€", "frac12": "½", "frac14": "¼",
	"frac34": "¾", "gt": ">", "hearts": "♥", "hellip": "…", "iacute": "í", "icirc": "î", "iexcl": "¡",
	"igrave": "ì", "iquest": "¿", "iuml": "ï", "laquo": "«", "ldquo": "“", "lsquo": "‘", "lt": "<",
	"macr": "¯", "mdash": "—", "micro": "µ", "middot": "·", "ndash": "–", "not": "¬", "ntilde": "ñ",
	"oacute": "ó", "ocirc": "ô", "ograve": "ò", "ordf": "ª", "ordm": "º", "oslash": "ø", "otilde": "õ",
	"ouml": "ö", "para": "¶", "pi": "π", "plusmn": "±", "pound": "£", "quot": "\"", "raquo": "»",
	"rdquo": "”", "reg": "®", "rsquo": "’", "sect": "§", "shy": "\u00ad", "sup1": "¹", "sup2": "²",
	"sup3": "³", "szlig": "ß", "thorn": "þ", "times": "×", "trade": "™", "uacute": "ú", "ucirc": "û",
	"ugrave": "ù", "uml": "¨", "uuml": "ü", "yacute": "ý", "yen": "¥", "yuml": "ÿ", "infin": "∞",
	"nbsp": "\u00a0",
}
