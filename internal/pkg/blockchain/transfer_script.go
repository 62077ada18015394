package blockchain

import (
	"strings"

	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
)

const transferScriptTemplate = `
import FungibleToken from 0xFUNGIBLE_TOKEN_ADDRESS
import TOKEN_CONTRACT_NAME from 0xTOKEN_CONTRACT_ADDRESS

transaction(amount: UFix64, to: Address) {

    let sentVault: @FungibleToken.Vault

    prepare(signer: AuthAccount) {
        let vaultRef = signer.borrow<&TOKEN_CONTRACT_NAME.Vault>(from: /storage/TOKEN_VAULT_PATH)
            ?? panic("Could not borrow reference to the owner's Vault")

        self.sentVault <- vaultRef.withdraw(amount: amount)
    }

    execute {
        let receiverRef = getAccount(to)
            .getCapability(/public/TOKEN_RECEIVER_PATH)
            .borrow<&{FungibleToken.Receiver}>()
            ?? panic("Could not borrow receiver reference to the recipient's Vault")

        receiverRef.deposit(from: <-self.sentVault)
    }
}
`

func transferScript(fungibleTokenAddress string, currency CurrencyConfig) ([]byte, error) {
	if fungibleTokenAddress == "" || currency.ContractName == "" || currency.ContractAddress == "" ||
		currency.VaultPath == "" || currency.ReceiverPath == "" {
		return nil, reject.Config("token contract %s is not fully configured", currency.ContractName)
	}

	txCode := transferScriptTemplate
	templates := map[string]string{
		"FUNGIBLE_TOKEN_ADDRESS": strings.TrimPrefix(fungibleTokenAddress, "0x"),
		"TOKEN_CONTRACT_ADDRESS": strings.TrimPrefix(currency.ContractAddress, "0x"),
		"TOKEN_CONTRACT_NAME":    currency.ContractName,
		"TOKEN_VAULT_PATH":       currency.VaultPath,
		"TOKEN_RECEIVER_PATH":    currency.ReceiverPath,
	}

	for k, v := range templates {
		txCode = strings.ReplaceAll(txCode, k, v)
	}

	return []byte(txCode), nil
}
