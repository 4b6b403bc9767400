package model

type AdminDashboard struct {
	Doctors            int            `json:"doctors"`
	Appointments       int            `json:"appointments"`
	Patients           int            `json:"patients"`
	TotalEarnings      float64        `json:"totalEarnings"`
	SpecialtyData      map[string]int `json:"specialtyData"`
	AppointmentTrends  map[string]int `json:"appointmentTrends"`
	LatestAppointments []Appointment  `json:"latestAppointments"`
}

type DoctorDashboard struct {
	Earnings           float64       `json:"earnings"`
	Appointments       int           `json:"appointments"`
	Patients           int           `json:"patients"`
	LatestAppointments []Appointment `json:"latestAppointments"`
}
