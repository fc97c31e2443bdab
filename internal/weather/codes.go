package weather

import "kindledash/internal/model"

// codeInfo pairs the icon classification and display description for one
// WMO weather interpretation code.
type codeInfo struct {
	Icon        model.WeatherIcon
	Description string
}

// wmoCodes maps WMO weather interpretation codes (as used by Open-Meteo)
// onto the shared icon vocabulary. The table is fixed; lookups for codes
// outside it go through classify, which substitutes a safe default instead
// of failing.
var wmoCodes = map[int]codeInfo{
	0:  {model.IconSunny, "Clear Sky"},
	1:  {model.IconPartlyCloudy, "Mainly Clear"},
	2:  {model.IconPartlyCloudy, "Partly Cloudy"},
	3:  {model.IconCloudy, "Overcast"},
	45: {model.IconCloudy, "Fog"},
	48: {model.IconCloudy, "Icy Fog"},
	51: {model.IconLightRain, "Light Drizzle"},
	53: {model.IconLightRain, "Drizzle"},
	55: {model.IconRain, "Heavy Drizzle"},
	61: {model.IconLightRain, "Light Rain"},
	63: {model.IconRain, "Rain"},
	65: {model.IconRain, "Heavy Rain"},
	71: {model.IconSnow, "Light Snow"},
	73: {model.IconSnow, "Snow"},
	75: {model.IconSnow, "Heavy Snow"},
	77: {model.IconSnow, "Snow Grains"},
	80: {model.IconLightRain, "Light Showers"},
	81: {model.IconRain, "Rain Showers"},
	82: {model.IconRain, "Heavy Showers"},
	85: {model.IconSnow, "Snow Showers"},
	86: {model.IconSnow, "Heavy Snow Showers"},
	95: {model.IconRain, "Thunderstorm"},
	96: {model.IconRain, "Thunderstorm w/ Hail"},
	99: {model.IconRain, "Thunderstorm w/ Heavy Hail"},
}

// classify resolves a WMO code to its icon and description. Unknown codes
// never fail; they render as an overcast "Unknown".
func classify(code int) codeInfo {
	if info, ok := wmoCodes[code]; ok {
		return info
	}
	return codeInfo{model.IconCloudy, "Unknown"}
}
