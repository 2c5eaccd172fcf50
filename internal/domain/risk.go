package domain

// HighRiskFailedDeliveries is the failed-delivery count from which cash on
// delivery is withheld.
const HighRiskFailedDeliveries = 3

func IsHighRisk(failedDeliveries int) bool {
	return failedDeliveries >= HighRiskFailedDeliveries
}

// CODAllowed applies the risk gate at checkout. Quote requests are gated too:
// once an admin prices them they ship like any other order.
func CODAllowed(u *User) bool {
	return !u.IsHighRisk()
}
