package model

type CustodialWallet struct {
	Id         uint64 `gorm:"primaryKey" json:"id"`
	ResourceId string `json:"resourceId"`
	PublicKey  string `json:"publicKey"`
	Address    string `gorm:"uniqueIndex" json:"address"`
	KeyIndex   int    `json:"keyIndex"`
}

func (CustodialWallet) TableName() string {
	return "custodial_wallet"
}
