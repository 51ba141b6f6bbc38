package area

// provinceFullByShort expands the colloquial short provincial names into the
// full legal administrative names.
var provinceFullByShort = map[string]string{
	"서울": "서울특별시",
	"부산": "부산광역시",
	"대구": "대구광역시",
	"인천": "인천광역시",
	"광주": "광주광역시",
	"대전": "대전광역시",
	"울산": "울산광역시",
	"세종": "세종특별자치시",
	"경기": "경기도",
	"강원": "강원특별자치도",
	"충북": "충청북도",
	"충남": "충청남도",
	"전북": "전북특별자치도",
	"전남": "전라남도",
	"경북": "경상북도",
	"경남": "경상남도",
	"제주": "제주특별자치도",
}

// provinceShortByFull is the reverse lookup used when producing variants.
var provinceShortByFull = func() map[string]string {
	m := make(map[string]string, len(provinceFullByShort))
	for short, full := range provinceFullByShort {
		m[full] = short
	}
	return m
}()

// districtNames lists bare tokens that take the district suffix (구).
// Everything not found here or in countyNames defaults to the city suffix.
var districtNames = map[string]struct{}{
	// Seoul
	"강남": {}, "강동": {}, "강북": {}, "강서": {}, "관악": {}, "광진": {},
	"구로": {}, "금천": {}, "노원": {}, "도봉": {}, "동대문": {}, "동작": {},
	"마포": {}, "서대문": {}, "서초": {}, "성동": {}, "성북": {}, "송파": {},
	"양천": {}, "영등포": {}, "용산": {}, "은평": {}, "종로": {}, "중": {}, "중랑": {},
	// Busan
	"해운대": {}, "수영": {}, "사하": {}, "사상": {}, "동래": {}, "금정": {},
	"연제": {}, "부산진": {}, "영도": {},
	// Daegu
	"달서": {}, "수성": {},
	// Incheon
	"계양": {}, "남동": {}, "미추홀": {}, "부평": {}, "연수": {},
	// Daejeon
	"유성": {}, "대덕": {},
	// Gwangju
	"광산": {},
	// Ulsan
	"남": {}, "동": {}, "북": {}, "서": {}, "울주": {},
	// Gyeonggi subdivisions
	"분당": {}, "일산동": {}, "일산서": {}, "덕양": {}, "팔달": {}, "권선": {},
	"영통": {}, "장안": {}, "수지": {}, "기흥": {}, "처인": {}, "상록": {}, "단원": {},
}

// countyNames lists bare tokens that take the county suffix (군).
var countyNames = map[string]struct{}{
	"기장": {}, "달성": {}, "강화": {}, "옹진": {},
	"양평": {}, "가평": {}, "연천": {},
	"홍천": {}, "횡성": {}, "영월": {}, "평창": {}, "정선": {}, "철원": {},
	"화천": {}, "양구": {}, "인제": {}, "고성": {}, "양양": {},
	"무주": {}, "진안": {}, "장수": {}, "임실": {}, "순창": {}, "고창": {}, "부안": {},
	"담양": {}, "곡성": {}, "구례": {}, "고흥": {}, "보성": {}, "화순": {}, "장흥": {},
	"강진": {}, "해남": {}, "영암": {}, "무안": {}, "함평": {}, "영광": {}, "장성": {},
	"완도": {}, "진도": {}, "신안": {},
}

// suffixed reports whether the token already carries an administrative suffix.
func suffixed(token string) bool {
	runes := []rune(token)
	if len(runes) < 2 {
		return false
	}
	switch runes[len(runes)-1] {
	case '시', '구', '군', '동', '읍', '면', '리', '도':
		return true
	}
	return false
}
