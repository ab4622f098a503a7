package pii

// givenNames holds common given names used to spot person names that have
// no title or context keyword in front of them. Keys are compared with
// accents stripped, so "jose" also matches "José".
var givenNames = []string{
	"aaron", "abigail", "adam", "alan", "albert", "alex", "alexander", "alice",
	"amanda", "amy", "andrew", "angela", "anna", "anthony", "ashley", "barbara",
	"benjamin", "betty", "brandon", "brenda", "brian", "carol", "carlos", "catherine",
	"charles", "christina", "christopher", "cynthia", "daniel", "david", "deborah",
	"debra", "dennis", "donald", "donna", "dorothy", "douglas", "edward", "elizabeth",
	"emily", "emma", "eric", "frank", "gary", "george", "gregory", "hannah", "harold",
	"heather", "helen", "henry", "jack", "jacob", "james", "jane", "janet", "jason",
	"jeffrey", "jennifer", "jeremy", "jessica", "john", "jonathan", "jose", "joseph",
	"joshua", "joyce", "juan", "julia", "julie", "justin", "karen", "katherine",
	"kathleen", "kelly", "kenneth", "kevin", "kimberly", "larry", "laura", "linda",
	"lisa", "margaret", "maria", "marie", "mary", "matthew", "melissa", "michael",
	"michelle", "nancy", "nathan", "nicholas", "nicole", "olivia", "pamela",
	"patricia", "patrick", "paul", "peter", "rachel", "raymond", "rebecca", "richard",
	"robert", "ronald", "ruth", "ryan", "samantha", "samuel", "sandra", "sarah",
	"scott", "sharon", "shirley", "sophia", "stephanie", "stephen", "steven", "susan",
	"teresa", "thomas", "timothy", "tyler", "victoria", "walter", "william", "zachary",
	"andre", "bjorn", "chloe", "francois", "ines", "jurgen", "lucia", "rene", "soren",
	"zoe",
}

// usStates holds US state names.
var usStates = []string{
	"alabama", "alaska", "arizona", "arkansas", "california", "colorado",
	"connecticut", "delaware", "florida", "georgia", "hawaii",
	"idaho", "illinois", "indiana", "iowa", "kansas", "kentucky", "louisiana", "maine",
	"maryland", "massachusetts", "michigan", "minnesota", "mississippi", "missouri",
	"montana", "nebraska", "nevada", "new hampshire", "new jersey", "new mexico",
	"new york", "north carolina", "north dakota", "ohio", "oklahoma", "oregon",
	"pennsylvania", "rhode island", "south carolina", "south dakota", "tennessee",
	"texas", "utah", "vermont", "virginia", "washington", "west virginia",
	"wisconsin", "wyoming",
}

// cities holds large US and international cities.
var cities = []string{
	"atlanta", "austin", "baltimore", "boston", "charlotte", "chicago", "cleveland",
	"columbus", "dallas", "denver", "detroit", "el paso", "fort worth", "houston",
	"indianapolis", "jacksonville", "kansas city", "las vegas", "los angeles",
	"louisville", "memphis", "miami", "milwaukee", "minneapolis", "nashville",
	"new orleans", "new york city", "oakland", "oklahoma city", "omaha",
	"philadelphia", "phoenix", "pittsburgh", "portland", "raleigh", "sacramento",
	"salt lake city", "san antonio", "san diego", "san francisco", "san jose",
	"seattle", "tampa", "tucson",
	"amsterdam", "berlin", "dublin", "london", "madrid", "mexico city", "montreal",
	"paris", "rome", "sydney", "tokyo", "toronto", "vancouver",
	"bogota", "cologne", "koln", "munich", "munchen", "sao paulo", "zurich",
}

// personContext holds the titles and keywords that introduce a person name.
var personContext = []string{
	`Patient`, `patient`, `Mr\.?`, `Mrs\.?`, `Ms\.?`, `Miss`, `Dr\.?`, `Doctor`,
	`Nurse`, `nurse`, `Name:`, `name:`, `name is`, `named`,
}

// locationContext holds phrases that introduce a place name.
var locationContext = []string{
	`lives in`, `living in`, `resides in`, `located in`, `born in`, `moved to`,
}

// streetSuffixes holds street type words that end a street address.
var streetSuffixes = []string{
	"Street", "St", "Avenue", "Ave", "Road", "Rd", "Boulevard", "Blvd", "Lane", "Ln",
	"Drive", "Court", "Ct", "Way", "Place", "Pl", "Terrace", "Parkway", "Pkwy",
}
