package evn

const Version = "0.1.0"
