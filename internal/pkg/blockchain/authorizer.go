package blockchain

// Authorizer identifies an account able to sign Flow transactions. Custodial
// accounts sign through a Cloud KMS key; emulator accounts may carry a raw key.
type Authorizer struct {
	KmsResourceId        string `json:"kmsResourceId"`
	ResourceOwnerAddress string `json:"resourceOwnerAddress"`
	KeyIndex             int    `json:"keyIndex"`
	PrivateKey           string `json:"-"`
}
