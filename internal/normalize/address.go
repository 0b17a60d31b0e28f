package normalize

import (
	"regexp"
	"strings"
)

// Address 住所の分解結果
type Address struct {
	ZipCode    string `json:"zipCode"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Address    string `json:"address"`
	Building   string `json:"building"`
}

// AddressParser 1行の住所文字列を分解する
type AddressParser interface {
	ParseAddress(full string) Address
}

var (
	postalCodeRe = regexp.MustCompile(`〒?[\s\x{3000}]*(\d{3}[-ー]?\d{4})`)
	prefectureRe = regexp.MustCompile(`^(東京都|北海道|(?:京都|大阪)府|.{2,3}県)`)
	cityRe       = regexp.MustCompile(`^(.+?[市区町村郡])`)
	buildingRe   = regexp.MustCompile(`[\s\x{3000}]+([^\s\x{3000}]*(?:ビル|マンション|ハイツ|コーポ|アパート|荘|号室|階|棟|レジデンス|タワー|パレス|ハウス|メゾン|コート)[^\s\x{3000}]*)`)
	postalSepRe  = regexp.MustCompile(`[-ー]`)
)

// JapaneseAddressParser 郵便番号・都道府県・市区町村・番地・建物名の順に切り出す
type JapaneseAddressParser struct{}

// ParseAddress 住所をパースする (例: 〒123-4567 東京都渋谷区...)
func (JapaneseAddressParser) ParseAddress(full string) Address {
	var result Address
	if full == "" {
		return result
	}

	addr := FoldDigits(full)

	result.ZipCode, addr = ExtractPostalCode(addr)
	result.Prefecture, addr = ExtractPrefecture(addr)
	result.City, addr = ExtractCity(addr)
	result.Address, result.Building = SplitBuilding(addr)

	return result
}

// ExtractPostalCode 7桁の郵便番号を取り出し、数字のみと残りの文字列を返す
func ExtractPostalCode(addr string) (zip, rest string) {
	loc := postalCodeRe.FindStringSubmatchIndex(addr)
	if loc == nil {
		return "", addr
	}
	zip = postalSepRe.ReplaceAllString(addr[loc[2]:loc[3]], "")
	rest = strings.TrimSpace(addr[:loc[0]] + addr[loc[1]:])
	return zip, rest
}

// ExtractPrefecture 先頭の都道府県を取り出す
func ExtractPrefecture(addr string) (prefecture, rest string) {
	m := prefectureRe.FindString(addr)
	if m == "" {
		return "", addr
	}
	return m, strings.TrimSpace(addr[len(m):])
}

// ExtractCity 先頭の市区町村（郡を含む）を取り出す
func ExtractCity(addr string) (city, rest string) {
	m := cityRe.FindString(addr)
	if m == "" {
		return "", addr
	}
	return m, strings.TrimSpace(addr[len(m):])
}

// SplitBuilding 残りの住所を番地と建物名に分ける
// マンション名等は全角・半角スペースで区切られていることが多い
func SplitBuilding(addr string) (address, building string) {
	loc := buildingRe.FindStringSubmatchIndex(addr)
	if loc == nil {
		return addr, ""
	}
	building = addr[loc[2]:loc[3]]
	address = strings.TrimSpace(addr[:loc[0]] + addr[loc[1]:])
	return address, building
}
