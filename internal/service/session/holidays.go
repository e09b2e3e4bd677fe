package session

// NSE trading holidays, as "2006-01-02" dates. Tentative dates follow
// the published exchange calendar; extra closures can be appended via
// Config.Holidays without a rebuild.
var exchangeHolidays = []string{
	// 2025
	"2025-02-26", // Mahashivratri
	"2025-03-14", // Holi
	"2025-03-31", // Id-ul-Fitr
	"2025-04-10", // Mahavir Jayanti
	"2025-04-14", // Dr. Ambedkar Jayanti
	"2025-04-18", // Good Friday
	"2025-05-01", // Maharashtra Day
	"2025-08-15", // Independence Day
	"2025-08-27", // Ganesh Chaturthi
	"2025-10-02", // Mahatma Gandhi Jayanti / Dussehra
	"2025-10-21", // Diwali Laxmi Pujan
	"2025-10-22", // Diwali Balipratipada
	"2025-11-05", // Guru Nanak Jayanti
	"2025-12-25", // Christmas

	// 2026
	"2026-01-26", // Republic Day
	"2026-02-17", // Mahashivratri
	"2026-03-14", // Holi
	"2026-03-31", // Id-ul-Fitr
	"2026-04-02", // Ram Navami
	"2026-04-06", // Mahavir Jayanti
	"2026-04-10", // Good Friday
	"2026-04-14", // Dr. Ambedkar Jayanti
	"2026-05-01", // Maharashtra Day
	"2026-06-07", // Bakrid
	"2026-07-06", // Muharram
	"2026-08-15", // Independence Day
	"2026-10-02", // Mahatma Gandhi Jayanti
	"2026-10-20", // Dussehra
	"2026-11-05", // Diwali Laxmi Pujan
	"2026-11-06", // Diwali Balipratipada
	"2026-11-19", // Guru Nanak Jayanti
	"2026-12-25", // Christmas
}
