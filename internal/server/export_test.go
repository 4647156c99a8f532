package server

// StatusFor exports statusFor for testing.
var StatusFor = statusFor
