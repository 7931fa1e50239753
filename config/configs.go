package config

import (
	"encoding/xml"
	"fmt"
	"os"
)

var MainRouter string
var DSN string
var DBType string
var SqlitePath string
var Upload string
var MainConfig Config

type Config struct {
	XMLName    xml.Name `xml:"config"`
	MainRouter string   `xml:"MainRouter"`
	DBType     string   `xml:"dbtype"`
	SqlitePath string   `xml:"sqlitepath"`
	Dbname     string   `xml:"dbname"`
	Host       string   `xml:"host"`
	Port       string   `xml:"port"`
	Username   string   `xml:"user"`
	Password   string   `xml:"password"`
	Upload     string   `xml:"upload"`
}

func init() {

	xmlFile, err := os.Open("config.xml")
	if err != nil {
		fmt.Println("Error  opening  file:", err)
		applyDefaults()
		return
	}
	defer xmlFile.Close()

	xmlDecoder := xml.NewDecoder(xmlFile)
	err = xmlDecoder.Decode(&MainConfig)
	if err != nil {
		fmt.Println("Error  decoding  XML:", err)
		applyDefaults()
		return
	}
	applyDefaults()
}

// applyDefaults 填充缺省配置，保证无config.xml时也能以sqlite模式启动
func applyDefaults() {
	if MainConfig.DBType == "" {
		MainConfig.DBType = "sqlite"
	}
	if MainConfig.SqlitePath == "" {
		MainConfig.SqlitePath = "./Data/geoglobe.db"
	}
	if MainConfig.Upload == "" {
		MainConfig.Upload = "./Uploads"
	}
	if MainConfig.MainRouter == "" {
		MainConfig.MainRouter = "0.0.0.0:8080"
	}

	MainRouter = MainConfig.MainRouter
	DBType = MainConfig.DBType
	SqlitePath = MainConfig.SqlitePath
	Upload = MainConfig.Upload
	DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC", MainConfig.Host, MainConfig.Username, MainConfig.Password, MainConfig.Dbname, MainConfig.Port)
}
